package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KonamiWu/lenslink/internal/config"
	"github.com/KonamiWu/lenslink/internal/detect"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/output"
	"github.com/KonamiWu/lenslink/internal/protocol"
	"github.com/KonamiWu/lenslink/internal/serial"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFlag   string
	portFlag     string
	baudFlag     int
	timeoutFlag  time.Duration
	logLevelFlag string
	outputFlag   string

	cfg       *config.Config
	logger    zerolog.Logger
	formatter output.Formatter
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lenslink",
		Short: "Talk to AiLens smart glasses",
		Long: `lenslink drives AiLens smart glasses over their binary command protocol.

It updates firmware, reads component versions and answers agent tool
calls against a connected pair of glasses.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default is ~/.lenslink/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "Response timeout per command")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format: table, json, yaml")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lenslink %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Find glasses on the serial ports",
		RunE:  runDetect,
	}

	rootCmd.AddCommand(
		newUpdateCmd(),
		newVersionsCmd(),
		newToolCmd(),
		newInspectCmd(),
		newConfigCmd(),
		detectCmd,
		listCmd,
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config file and applies flag overrides.
func setup(cmd *cobra.Command, args []string) error {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if portFlag != "" {
		cfg.Port = portFlag
	}
	if baudFlag > 0 {
		cfg.Baud = baudFlag
	}
	if timeoutFlag > 0 {
		cfg.ResponseTimeout = timeoutFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if outputFlag != "" {
		cfg.OutputFormat = outputFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	formatter = output.NewFormatter(cfg.OutputFormat)
	return nil
}

// signalContext is cancelled on Ctrl-C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func printResult(data any) error {
	text, err := formatter.Format(data)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

// connect opens the configured port, or the first port with glasses,
// and starts a link on it. Call the returned function to close it.
func connect(ctx context.Context, onEvent link.EventHandler) (*link.Link, func(), error) {
	portName := cfg.Port
	if portName == "" {
		logger.Info().Msg("detecting glasses")
		result, err := detect.DetectDevice(ctx, cfg.Baud)
		if err != nil {
			return nil, nil, fmt.Errorf("device detection failed: %w", err)
		}
		portName = result.Port
		logger.Info().Str("port", result.Port).Msg("found glasses")
	}

	port, err := serial.Open(portName, cfg.Baud)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open port: %w", err)
	}

	opts := []link.Option{
		link.WithResponseTimeout(cfg.ResponseTimeout),
		link.WithLogger(logger.With().Str("port", portName).Logger()),
	}
	if onEvent != nil {
		opts = append(opts, link.WithEventHandler(onEvent))
	}
	l := link.New(port, opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("link stopped")
		}
	}()

	return l, func() {
		l.Close()
		<-done
	}, nil
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPortDetails()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	return printResult(ports)
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Port != "" {
		result, err := detect.DetectOnPort(ctx, cfg.Port, cfg.Baud)
		if err != nil {
			return fmt.Errorf("failed to detect glasses on %s: %w", cfg.Port, err)
		}
		return printResult(detect.Results{*result})
	}

	fmt.Println("Scanning for glasses...")
	devices, err := detect.ListDevices(ctx, cfg.Baud)
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No glasses found")
		return nil
	}
	return printResult(devices)
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	l, closeLink, err := connect(ctx, nil)
	if err != nil {
		return err
	}
	defer closeLink()

	versions, err := link.Execute(ctx, l, protocol.GetVersionList{})
	if err != nil {
		return fmt.Errorf("failed to read versions: %w", err)
	}
	return printResult(output.NewComponents(versions))
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Show firmware component versions",
		RunE:  runVersions,
	}
}
