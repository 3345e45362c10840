package firmware

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionString renders a packed 0x00MMmmpp section version as "MM.mm.pp",
// the form the glasses report in their version list.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}

// CompareVersions compares dotted numeric versions. Missing or non-numeric
// parts count as 0. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")

	n := len(ap)
	if len(bp) > n {
		n = len(bp)
	}
	for i := 0; i < n; i++ {
		x, y := versionPart(ap, i), versionPart(bp, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return v
}

// FilterUpdateSections keeps the sections the device needs: those newer than
// the installed component, those flagged for forced update, or all of them
// when force is set. Components the device does not report count as "0".
func FilterUpdateSections(img *Image, deviceVersions map[uint32]string, force bool) []Section {
	var out []Section
	for _, s := range img.Sections {
		installed, ok := deviceVersions[uint32(s.Header.BinType())]
		if !ok {
			installed = "0"
		}
		if force || s.Header.ForceUpdate > 0 || CompareVersions(installed, VersionString(s.Header.Version)) < 0 {
			out = append(out, s)
		}
	}
	return out
}
