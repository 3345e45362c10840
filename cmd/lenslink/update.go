package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/KonamiWu/lenslink/internal/firmware"
	"github.com/KonamiWu/lenslink/internal/ota"
)

var (
	forceFlag   bool
	retriesFlag int
	mtuFlag     int
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <firmware.bag>",
		Short: "Update glasses firmware",
		Long: `Update the glasses from a firmware bundle.

Only components older than the bundle are sent unless --force is given.
Each packet waits for the glasses' acknowledgement before the next one.
Press Ctrl-C to abort; the glasses are told the update failed.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpdate,
	}
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Send every component even if already up to date")
	cmd.Flags().IntVar(&retriesFlag, "retries", -1, "Extra attempts per packet (default from config)")
	cmd.Flags().IntVar(&mtuFlag, "mtu", 0, "Link MTU used to size packets (default from config)")
	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	bundlePath := args[0]

	img, err := firmware.ParseFile(bundlePath)
	if err != nil {
		return err
	}

	fmt.Printf("Firmware: %s (version %s, %d components, %d bytes)\n",
		bundlePath, firmware.VersionString(img.Header.Version), len(img.Sections), img.Header.Length)

	retries := cfg.ChunkRetries
	if retriesFlag >= 0 {
		retries = retriesFlag
	}
	mtu := cfg.MTU
	if mtuFlag > 0 {
		mtu = mtuFlag
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, closeLink, err := connect(ctx, nil)
	if err != nil {
		return err
	}
	defer closeLink()

	bar := progressbar.NewOptions(1,
		progressbar.OptionSetDescription("Updating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	u := ota.New(l,
		ota.WithRetries(retries),
		ota.WithMTU(mtu),
		ota.WithForce(forceFlag),
		ota.WithLogger(logger),
		ota.WithProgressCallback(func(current, total int) {
			if bar.GetMax() != total {
				bar.ChangeMax(total)
			}
			bar.Set(current)
		}),
		ota.WithStateCallback(func(from, to ota.State) {
			logger.Debug().Stringer("from", from).Stringer("to", to).Msg("update state")
		}),
	)

	report, err := u.Update(ctx, img)
	if err != nil {
		bar.Exit()
		fmt.Println()
		return describeUpdateError(err)
	}

	if report.UpToDate {
		fmt.Println("Glasses are already up to date.")
		return nil
	}

	bar.Finish()
	fmt.Printf("\nUpdate complete: %d components, %d packets, %d bytes in %s\n",
		len(report.Components), report.Packets, report.TotalLength, report.Elapsed.Round(time.Millisecond))
	fmt.Printf("Session: %s\n", report.SessionID)
	fmt.Println("Done!")
	return nil
}

func describeUpdateError(err error) error {
	var verify *ota.VerificationError
	switch {
	case errors.Is(err, ota.ErrCancelled), errors.Is(err, context.Canceled):
		return fmt.Errorf("update cancelled, glasses were told to discard it")
	case errors.As(err, &verify):
		return fmt.Errorf("update sent but not confirmed: %w", err)
	default:
		return fmt.Errorf("update failed: %w", err)
	}
}
