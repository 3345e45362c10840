// Package stream splits a serial byte stream into whole glasses messages.
package stream

import (
	"encoding/binary"

	"github.com/KonamiWu/lenslink/internal/protocol"
)

// MaxMessageSize bounds a single message. A header announcing more is
// treated as line noise.
const MaxMessageSize = 4096

// ReadMessage reads one complete message from a byte stream.
// Returns the message and remaining bytes. Bytes before the first marker
// are dropped; an incomplete message is returned in remaining.
func ReadMessage(data []byte) (msg []byte, remaining []byte) {
	for {
		start := findMarker(data)
		if start == -1 {
			// A lone trailing marker byte may begin the next message.
			if n := len(data); n > 0 && isMarkerStart(data[n-1]) {
				return nil, data[n-1:]
			}
			return nil, nil
		}
		data = data[start:]

		size, ok := messageSize(data)
		if !ok {
			return nil, data
		}
		if size > MaxMessageSize {
			data = data[1:]
			continue
		}
		if len(data) < size {
			return nil, data
		}
		return data[:size], data[size:]
	}
}

func isMarkerStart(b byte) bool {
	return b == protocol.Sync0 || b == protocol.Magic0
}

func findMarker(data []byte) int {
	for i := 0; i+1 < len(data); i++ {
		if data[i] == protocol.Sync0 && data[i+1] == protocol.Sync1 {
			return i
		}
		if data[i] == protocol.Magic0 && data[i+1] == protocol.Magic1 {
			return i
		}
	}
	return -1
}

// messageSize returns the full size of the message starting at data[0].
// "EM" messages and "OB" messages whose type/length field agrees with the
// length field use the 8-byte header; other "OB" messages are envelopes with
// a 5-byte header.
func messageSize(data []byte) (int, bool) {
	if data[0] == protocol.Magic0 {
		if len(data) < protocol.FrameHeaderSize {
			return 0, false
		}
		return protocol.FrameHeaderSize + int(binary.LittleEndian.Uint16(data[4:6])), true
	}

	if len(data) >= protocol.FrameHeaderSize {
		n := binary.LittleEndian.Uint16(data[4:6])
		if valueLen, _ := protocol.UnpackTypeLength(binary.LittleEndian.Uint16(data[6:8])); valueLen == n && data[3] == 0x00 {
			return protocol.FrameHeaderSize + int(n), true
		}
	}
	if len(data) < protocol.EnvelopeHeaderSize {
		return 0, false
	}
	return protocol.EnvelopeHeaderSize + int(binary.LittleEndian.Uint16(data[3:5])), true
}

// Splitter accumulates stream bytes and yields whole messages.
type Splitter struct {
	buf []byte
}

// Write appends bytes read from the stream.
func (s *Splitter) Write(p []byte) {
	s.buf = append(s.buf, p...)
}

// Next returns the next complete message, if any.
func (s *Splitter) Next() ([]byte, bool) {
	msg, rest := ReadMessage(s.buf)
	if msg == nil {
		s.buf = rest
		return nil, false
	}
	out := make([]byte, len(msg))
	copy(out, msg)
	s.buf = append(s.buf[:0], rest...)
	return out, true
}

// Buffered returns the number of bytes held back waiting for more data.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}
