// Package firmware parses BAG firmware bundles and cuts them into OTA packets.
package firmware

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
)

// Header magics and sizes
const (
	BAGMagic      = 0x4741424D // "GABM"
	BAGHeaderSize = 32
	OTAMagic      = 0x5746424D // "WFBM"
	OTAHeaderSize = 48
)

// BAGHeader is the 32-byte little-endian header of a firmware bundle.
type BAGHeader struct {
	Magic     uint32
	Version   uint32
	DevType   uint32
	Timestamp uint32
	Length    uint32
	Reserved  [3]uint32
}

// OTAHeader is the 48-byte little-endian header in front of each section.
type OTAHeader struct {
	Magic       uint32
	StartAddr   uint32
	Length      uint32
	CRC         uint32
	SecInfoLen  uint32
	MaxSize     uint32
	ForceUpdate uint32
	Reserved    uint32
	Version     uint32
	DataType    uint32
	StorageType uint32
	ImageID     uint32
}

// BinType returns the component type byte used on the wire.
func (h *OTAHeader) BinType() byte {
	return byte(h.DataType & 0xFF)
}

// Bytes serializes the header.
func (h *OTAHeader) Bytes() []byte {
	buf := make([]byte, OTAHeaderSize)
	fields := []uint32{
		h.Magic, h.StartAddr, h.Length, h.CRC, h.SecInfoLen, h.MaxSize,
		h.ForceUpdate, h.Reserved, h.Version, h.DataType, h.StorageType, h.ImageID,
	}
	for i, v := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Bytes serializes the header.
func (h *BAGHeader) Bytes() []byte {
	buf := make([]byte, BAGHeaderSize)
	fields := []uint32{h.Magic, h.Version, h.DevType, h.Timestamp, h.Length, h.Reserved[0], h.Reserved[1], h.Reserved[2]}
	for i, v := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// Section is one component image inside a bundle.
type Section struct {
	Header OTAHeader
	Data   []byte
}

// WireData returns the header followed by the firmware data, which is what
// gets transferred to the glasses.
func (s *Section) WireData() []byte {
	out := make([]byte, 0, OTAHeaderSize+len(s.Data))
	out = append(out, s.Header.Bytes()...)
	return append(out, s.Data...)
}

// Image is a parsed firmware bundle.
type Image struct {
	Header   BAGHeader
	Sections []Section
}

// TotalLength returns the number of bytes a transfer of sections carries.
func TotalLength(sections []Section) uint32 {
	var n uint32
	for _, s := range sections {
		n += OTAHeaderSize + s.Header.Length
	}
	return n
}

// ChecksumMismatchError reports a section whose data does not match its CRC.
type ChecksumMismatchError struct {
	DataType uint32
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch for section 0x%X: expected 0x%08X, got 0x%08X", e.DataType, e.Expected, e.Actual)
}

// LengthMismatchError reports a bundle whose sections do not add up to the
// length in its header.
type LengthMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("total length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func parseBAGHeader(data []byte) BAGHeader {
	u := func(i int) uint32 { return binary.LittleEndian.Uint32(data[i*4:]) }
	return BAGHeader{
		Magic:     u(0),
		Version:   u(1),
		DevType:   u(2),
		Timestamp: u(3),
		Length:    u(4),
		Reserved:  [3]uint32{u(5), u(6), u(7)},
	}
}

func parseOTAHeader(data []byte) OTAHeader {
	u := func(i int) uint32 { return binary.LittleEndian.Uint32(data[i*4:]) }
	return OTAHeader{
		Magic:       u(0),
		StartAddr:   u(1),
		Length:      u(2),
		CRC:         u(3),
		SecInfoLen:  u(4),
		MaxSize:     u(5),
		ForceUpdate: u(6),
		Reserved:    u(7),
		Version:     u(8),
		DataType:    u(9),
		StorageType: u(10),
		ImageID:     u(11),
	}
}

// Parse parses a BAG bundle. Every section's CRC-32 is checked and the
// section lengths must add up to the bundle length.
func Parse(data []byte) (*Image, error) {
	if len(data) < BAGHeaderSize {
		return nil, fmt.Errorf("bundle too short: %d bytes", len(data))
	}

	img := &Image{Header: parseBAGHeader(data)}
	if img.Header.Magic != BAGMagic {
		return nil, fmt.Errorf("invalid bundle magic: 0x%08X", img.Header.Magic)
	}

	var total uint32
	offset := BAGHeaderSize
	for offset+OTAHeaderSize <= len(data) {
		hdr := parseOTAHeader(data[offset : offset+OTAHeaderSize])
		if hdr.Magic != OTAMagic {
			break
		}

		start := offset + OTAHeaderSize
		end := start + int(hdr.Length)
		if end > len(data) || end < start {
			return nil, fmt.Errorf("section 0x%X data exceeds bundle size", hdr.DataType)
		}

		body := data[start:end]
		if crc := crc32.ChecksumIEEE(body); crc != hdr.CRC {
			return nil, &ChecksumMismatchError{DataType: hdr.DataType, Expected: hdr.CRC, Actual: crc}
		}

		img.Sections = append(img.Sections, Section{Header: hdr, Data: body})
		total += OTAHeaderSize + hdr.Length
		offset = end
	}

	if total != img.Header.Length {
		return nil, &LengthMismatchError{Expected: img.Header.Length, Actual: total}
	}
	return img, nil
}

// ParseFile reads and parses a bundle from disk.
func ParseFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware file: %w", err)
	}
	return Parse(data)
}

// Build assembles a bundle from sections, filling in lengths and CRCs.
func Build(version, devType, timestamp uint32, sections []Section) []byte {
	out := make([]byte, BAGHeaderSize)
	for i := range sections {
		s := &sections[i]
		s.Header.Magic = OTAMagic
		s.Header.Length = uint32(len(s.Data))
		s.Header.CRC = crc32.ChecksumIEEE(s.Data)
		out = append(out, s.WireData()...)
	}

	hdr := BAGHeader{
		Magic:     BAGMagic,
		Version:   version,
		DevType:   devType,
		Timestamp: timestamp,
		Length:    TotalLength(sections),
	}
	copy(out, hdr.Bytes())
	return out
}
