package firmware

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/KonamiWu/lenslink/internal/protocol"
)

// SliceType marks a packet's position within a section.
type SliceType byte

const (
	SliceBegin  SliceType = 0x00
	SliceMiddle SliceType = 0x01
	SliceEnd    SliceType = 0x02
)

// PacketHeaderSize is the per-packet head: binType, slice type, crc32, index.
const PacketHeaderSize = 10

// DefaultMTU is the negotiated link MTU assumed when none is configured.
const DefaultMTU = 512

// MaxSubPayload returns how many firmware bytes fit in one packet for mtu.
func MaxSubPayload(mtu int) int {
	effective := mtu - 3
	if effective < 20 {
		effective = 20
	}
	n := effective - protocol.FrameHeaderSize - PacketHeaderSize
	if n < 1 {
		n = 1
	}
	return n
}

// Packetize cuts data into OTA data packets for command 0x1A. Every packet
// is a complete frame; the frame's packet type bit is always 0.
func Packetize(binType byte, data []byte, mtu int) [][]byte {
	size := MaxSubPayload(mtu)
	total := (len(data) + size - 1) / size

	packets := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * size
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		packets = append(packets, buildPacket(binType, sliceType(i, total), data[start:end], uint32(i)))
	}
	return packets
}

func sliceType(i, total int) SliceType {
	switch {
	case i == 0:
		return SliceBegin
	case i == total-1:
		return SliceEnd
	default:
		return SliceMiddle
	}
}

func buildPacket(binType byte, slice SliceType, sub []byte, index uint32) []byte {
	value := make([]byte, PacketHeaderSize+len(sub))
	value[0] = binType
	value[1] = byte(slice)
	binary.LittleEndian.PutUint32(value[2:6], crc32.ChecksumIEEE(sub))
	binary.LittleEndian.PutUint32(value[6:10], index)
	copy(value[PacketHeaderSize:], sub)
	return protocol.Encode(protocol.CmdOTAData, protocol.PacketData, value)
}

// PacketInfo is the decoded packet head of an OTA data packet.
type PacketInfo struct {
	BinType byte
	Slice   SliceType
	CRC     uint32
	Index   uint32
	Data    []byte
}

// ParsePacket decodes an OTA data packet frame. It is the device side of
// Packetize and reports whether the data matches its CRC.
func ParsePacket(frame []byte) (*PacketInfo, bool, error) {
	f, err := protocol.DecodeFrame(frame)
	if err != nil {
		return nil, false, err
	}
	if len(f.Payload) < PacketHeaderSize {
		return nil, false, protocol.ErrFrameTooShort
	}

	p := &PacketInfo{
		BinType: f.Payload[0],
		Slice:   SliceType(f.Payload[1]),
		CRC:     binary.LittleEndian.Uint32(f.Payload[2:6]),
		Index:   binary.LittleEndian.Uint32(f.Payload[6:10]),
		Data:    f.Payload[PacketHeaderSize:],
	}
	return p, crc32.ChecksumIEEE(p.Data) == p.CRC, nil
}
