package output

import (
	"fmt"
	"slices"

	"github.com/KonamiWu/lenslink/internal/protocol"
)

// Component is one firmware component reported by the glasses.
type Component struct {
	Type    uint32 `json:"type" yaml:"type"`
	Version string `json:"version" yaml:"version"`
}

// Components is a version list in ascending type order.
type Components []Component

// NewComponents orders a version list by component type.
func NewComponents(versions protocol.VersionList) Components {
	out := make(Components, 0, len(versions))
	for t, v := range versions {
		out = append(out, Component{Type: t, Version: v})
	}
	slices.SortFunc(out, func(a, b Component) int { return int(a.Type) - int(b.Type) })
	return out
}

func (c Components) Header() []string { return []string{"TYPE", "VERSION"} }

func (c Components) Rows() [][]string {
	rows := make([][]string, 0, len(c))
	for _, comp := range c {
		rows = append(rows, []string{fmt.Sprintf("0x%02X", comp.Type), comp.Version})
	}
	return rows
}
