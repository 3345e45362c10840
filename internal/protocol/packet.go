package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is a decoded host-shaped frame: magic, code, length, type/length, payload.
type Frame struct {
	Code        uint16
	Length      uint16
	ValueLength uint16
	PacketType  PacketType
	Payload     []byte
}

// Envelope is a decoded device response: sync, command, length, status, payload.
type Envelope struct {
	Command byte
	Length  uint16
	Status  byte
	Payload []byte
}

// IsSuccess returns true if the device reported success.
func (e *Envelope) IsSuccess() bool {
	return e.Status == StatusSuccess
}

// PackTypeLength combines a value length and packet type into the 16-bit field.
func PackTypeLength(valueLen uint16, packetType PacketType) uint16 {
	return valueLen<<1 | uint16(packetType&1)
}

// UnpackTypeLength splits the 16-bit type/length field.
func UnpackTypeLength(v uint16) (uint16, PacketType) {
	return v >> 1, PacketType(v & 1)
}

// Encode builds an outbound frame.
// Format: magic(2) + code(2) + len(2) + type/len(2) + payload, header little-endian.
// Payloads longer than MaxValueLength are not representable.
func Encode(code uint16, packetType PacketType, payload []byte) []byte {
	frame := make([]byte, FrameHeaderSize+len(payload))
	frame[0] = Magic0
	frame[1] = Magic1
	binary.LittleEndian.PutUint16(frame[2:4], code)
	binary.LittleEndian.PutUint16(frame[4:6], uint16(len(payload)))
	binary.LittleEndian.PutUint16(frame[6:8], PackTypeLength(uint16(len(payload)), packetType))
	copy(frame[FrameHeaderSize:], payload)
	return frame
}

// EncodeUint32 builds a frame whose payload is a single 32-bit value in the
// given byte order.
func EncodeUint32(code uint16, v uint32, order binary.ByteOrder) []byte {
	payload := make([]byte, 4)
	order.PutUint32(payload, v)
	return Encode(code, PacketData, payload)
}

// DecodeFrame parses a host-shaped frame header. The payload is whatever
// follows the header, capped at the declared length.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}
	if data[0] != Magic0 || data[1] != Magic1 {
		return nil, fmt.Errorf("bad frame magic: %02X %02X", data[0], data[1])
	}

	f := &Frame{
		Code:   binary.LittleEndian.Uint16(data[2:4]),
		Length: binary.LittleEndian.Uint16(data[4:6]),
	}
	f.ValueLength, f.PacketType = UnpackTypeLength(binary.LittleEndian.Uint16(data[6:8]))

	payload := data[FrameHeaderSize:]
	if int(f.Length) < len(payload) {
		payload = payload[:f.Length]
	}
	f.Payload = payload
	return f, nil
}

// DecodeEnvelopeHeader parses the 5-byte response header without a status byte.
func DecodeEnvelopeHeader(data []byte) (*Envelope, error) {
	if len(data) < EnvelopeHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}
	return &Envelope{
		Command: data[2],
		Length:  binary.LittleEndian.Uint16(data[3:5]),
	}, nil
}

// DecodeEnvelope parses a device response including its status byte.
// A nonzero status returns the envelope together with a *DeviceError so the
// payload stays available for diagnostics.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	env, err := DecodeEnvelopeHeader(data)
	if err != nil {
		return nil, err
	}
	if data[0] != Sync0 || data[1] != Sync1 {
		return nil, fmt.Errorf("bad envelope sync: %02X %02X", data[0], data[1])
	}
	if len(data) < StatusOffset+1 {
		return nil, fmt.Errorf("%w: %d bytes, no status", ErrFrameTooShort, len(data))
	}

	env.Status = data[StatusOffset]
	env.Payload = data[StatusOffset+1:]

	if !env.IsSuccess() {
		return env, &DeviceError{Command: CommandName(uint16(env.Command)), Status: env.Status}
	}
	return env, nil
}

// EncodeEnvelope builds a device response. The length field counts the
// status byte and the payload.
func EncodeEnvelope(cmd byte, status byte, payload []byte) []byte {
	data := make([]byte, EnvelopeHeaderSize+1+len(payload))
	data[0] = Sync0
	data[1] = Sync1
	data[2] = cmd
	binary.LittleEndian.PutUint16(data[3:5], uint16(1+len(payload)))
	data[StatusOffset] = status
	copy(data[StatusOffset+1:], payload)
	return data
}

// EncodeReply builds a device reply that carries a full 8-byte header, as the
// glasses send for settings reads: sync(2) + code(2) + len(2) + type/len(2) + payload.
func EncodeReply(code uint16, payload []byte) []byte {
	data := Encode(code, PacketData, payload)
	data[0] = Sync0
	data[1] = Sync1
	return data
}
