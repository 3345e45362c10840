package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KonamiWu/lenslink/internal/firmware"
)

// bundleInfo is what inspect prints for a firmware bundle.
type bundleInfo struct {
	Version    string        `json:"version" yaml:"version"`
	DevType    uint32        `json:"dev_type" yaml:"dev_type"`
	Built      time.Time     `json:"built" yaml:"built"`
	Length     uint32        `json:"length" yaml:"length"`
	Components []sectionInfo `json:"components" yaml:"components"`
}

type sectionInfo struct {
	Type    uint32 `json:"type" yaml:"type"`
	Version string `json:"version" yaml:"version"`
	Length  uint32 `json:"length" yaml:"length"`
	CRC     string `json:"crc" yaml:"crc"`
	Force   bool   `json:"force" yaml:"force"`
	Packets int    `json:"packets" yaml:"packets"`
	Address string `json:"address" yaml:"address"`
}

func (b bundleInfo) Header() []string {
	return []string{"TYPE", "VERSION", "LENGTH", "CRC", "FORCE", "PACKETS", "ADDRESS"}
}

func (b bundleInfo) Rows() [][]string {
	rows := make([][]string, 0, len(b.Components))
	for _, s := range b.Components {
		rows = append(rows, []string{
			fmt.Sprintf("0x%02X", s.Type), s.Version, fmt.Sprint(s.Length), s.CRC,
			fmt.Sprint(s.Force), fmt.Sprint(s.Packets), s.Address,
		})
	}
	return rows
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <firmware.bag>",
		Short: "Show the components of a firmware bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	img, err := firmware.ParseFile(args[0])
	if err != nil {
		return err
	}

	info := bundleInfo{
		Version: firmware.VersionString(img.Header.Version),
		DevType: img.Header.DevType,
		Built:   time.Unix(int64(img.Header.Timestamp), 0).UTC(),
		Length:  img.Header.Length,
	}
	for _, s := range img.Sections {
		info.Components = append(info.Components, sectionInfo{
			Type:    uint32(s.Header.BinType()),
			Version: firmware.VersionString(s.Header.Version),
			Length:  s.Header.Length,
			CRC:     fmt.Sprintf("%08X", s.Header.CRC),
			Force:   s.Header.ForceUpdate != 0,
			Packets: len(firmware.Packetize(s.Header.BinType(), s.WireData(), cfg.MTU)),
			Address: fmt.Sprintf("0x%08X", s.Header.StartAddr),
		})
	}

	if strings.EqualFold(cfg.OutputFormat, "table") {
		fmt.Printf("Bundle %s, device type %d, built %s, %d bytes\n\n",
			info.Version, info.DevType, info.Built.Format(time.RFC3339), info.Length)
	}
	return printResult(info)
}
