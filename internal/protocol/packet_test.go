package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncode_EmptyPayload(t *testing.T) {
	result := Encode(CmdGetVersionList, PacketData, nil)
	expected := []byte{0x45, 0x4D, 0x29, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(0x29, nil) = % X, want % X", result, expected)
	}
}

func TestEncode_OneBytePayload(t *testing.T) {
	result := Encode(CmdReboot, PacketData, []byte{0x10})
	expected := []byte{0x45, 0x4D, 0x1B, 0x00, 0x01, 0x00, 0x02, 0x00, 0x10}
	if !bytes.Equal(result, expected) {
		t.Errorf("Encode(0x1B, [10]) = % X, want % X", result, expected)
	}
}

func TestEncode_ControlPacketType(t *testing.T) {
	result := Encode(0x0102, PacketControl, []byte{0xAA, 0xBB, 0xCC})

	if code := binary.LittleEndian.Uint16(result[2:4]); code != 0x0102 {
		t.Errorf("Encode() code = 0x%04X, want 0x0102", code)
	}
	if n := binary.LittleEndian.Uint16(result[4:6]); n != 3 {
		t.Errorf("Encode() length = %d, want 3", n)
	}
	if tl := binary.LittleEndian.Uint16(result[6:8]); tl != 3<<1|1 {
		t.Errorf("Encode() type/length = 0x%04X, want 0x%04X", tl, 3<<1|1)
	}
	if !bytes.Equal(result[8:], []byte{0xAA, 0xBB, 0xCC}) {
		t.Errorf("Encode() payload = % X", result[8:])
	}
}

func TestEncode_LengthMatchesPayload(t *testing.T) {
	for _, n := range []int{0, 1, 4, 100, 1000} {
		payload := make([]byte, n)
		result := Encode(CmdOTAData, PacketData, payload)
		if len(result) != FrameHeaderSize+n {
			t.Errorf("len(Encode(%d bytes)) = %d, want %d", n, len(result), FrameHeaderSize+n)
		}
		if got := binary.LittleEndian.Uint16(result[4:6]); int(got) != n {
			t.Errorf("Encode(%d bytes) length field = %d", n, got)
		}
	}
}

func TestEncodeUint32_ByteOrder(t *testing.T) {
	le := EncodeUint32(CmdOTAStart, 0x00012345, binary.LittleEndian)
	expectedLE := []byte{0x45, 0x4D, 0x7B, 0x00, 0x04, 0x00, 0x08, 0x00, 0x45, 0x23, 0x01, 0x00}
	if !bytes.Equal(le, expectedLE) {
		t.Errorf("EncodeUint32(LE) = % X, want % X", le, expectedLE)
	}

	be := EncodeUint32(CmdSetVersion, 0x01020304, binary.BigEndian)
	expectedBE := []byte{0x45, 0x4D, 0x2B, 0x00, 0x04, 0x00, 0x08, 0x00, 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(be, expectedBE) {
		t.Errorf("EncodeUint32(BE) = % X, want % X", be, expectedBE)
	}
}

func TestPackTypeLength_RoundTrip(t *testing.T) {
	lengths := []uint16{0, 1, 2, 255, 1000, MaxValueLength}
	types := []PacketType{PacketData, PacketControl}

	for _, n := range lengths {
		for _, pt := range types {
			gotLen, gotType := UnpackTypeLength(PackTypeLength(n, pt))
			if gotLen != n || gotType != pt {
				t.Errorf("Unpack(Pack(%d, %d)) = (%d, %d)", n, pt, gotLen, gotType)
			}
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	frame := Encode(CmdSetBrightness, PacketData, []byte{0x32})
	f, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if f.Code != CmdSetBrightness {
		t.Errorf("DecodeFrame() Code = 0x%02X, want 0x%02X", f.Code, CmdSetBrightness)
	}
	if f.ValueLength != 1 || f.PacketType != PacketData {
		t.Errorf("DecodeFrame() value length/type = %d/%d, want 1/0", f.ValueLength, f.PacketType)
	}
	if !bytes.Equal(f.Payload, []byte{0x32}) {
		t.Errorf("DecodeFrame() Payload = % X, want 32", f.Payload)
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x45, 0x4D, 0x29}); !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("DecodeFrame(short) error = %v, want ErrFrameTooShort", err)
	}
	if _, err := DecodeFrame(make([]byte, 8)); err == nil {
		t.Error("DecodeFrame(bad magic) should fail")
	}
}

func TestDecodeEnvelope_TooShort(t *testing.T) {
	for n := 0; n < EnvelopeHeaderSize; n++ {
		data := make([]byte, n)
		env, err := DecodeEnvelopeHeader(data)
		if !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("DecodeEnvelopeHeader(%d bytes) error = %v, want ErrFrameTooShort", n, err)
		}
		if env != nil {
			t.Errorf("DecodeEnvelopeHeader(%d bytes) returned a partial result", n)
		}
		if _, err := DecodeEnvelope(data); !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("DecodeEnvelope(%d bytes) error = %v, want ErrFrameTooShort", n, err)
		}
	}
}

func TestDecodeEnvelope_BadSync(t *testing.T) {
	data := []byte{0x45, 0x4D, 0x29, 0x01, 0x00, 0x00}
	env, err := DecodeEnvelope(data)
	if err == nil || errors.Is(err, ErrFrameTooShort) || IsDeviceError(err) {
		t.Errorf("DecodeEnvelope(EM sync) error = %v, want bad envelope sync", err)
	}
	if env != nil {
		t.Errorf("DecodeEnvelope(EM sync) = %+v, want nil", env)
	}
}

func TestDecodeEnvelope_MissingStatus(t *testing.T) {
	data := []byte{0x4F, 0x42, 0x29, 0x00, 0x00}
	if _, err := DecodeEnvelopeHeader(data); err != nil {
		t.Errorf("DecodeEnvelopeHeader(5 bytes) error = %v", err)
	}
	if _, err := DecodeEnvelope(data); !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("DecodeEnvelope(5 bytes) error = %v, want ErrFrameTooShort", err)
	}
}

func TestDecodeEnvelope_Success(t *testing.T) {
	data := []byte{0x4F, 0x42, 0x1A, 0x06, 0x00, 0x00, 0x01, 0x02, 0x00, 0x00, 0x00}
	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error = %v", err)
	}
	if env.Command != 0x1A {
		t.Errorf("Command = 0x%02X, want 0x1A", env.Command)
	}
	if env.Length != 6 {
		t.Errorf("Length = %d, want 6", env.Length)
	}
	if !env.IsSuccess() {
		t.Error("IsSuccess() = false, want true")
	}
	if !bytes.Equal(env.Payload, data[6:]) {
		t.Errorf("Payload = % X, want % X", env.Payload, data[6:])
	}
}

func TestDecodeEnvelope_DeviceError(t *testing.T) {
	data := []byte{0x4F, 0x42, 0x1A, 0x03, 0x00, 0x12, 0xAB, 0xCD}
	env, err := DecodeEnvelope(data)

	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("DecodeEnvelope() error = %v, want *DeviceError", err)
	}
	if devErr.Status != 0x12 {
		t.Errorf("DeviceError.Status = 0x%02X, want 0x12", devErr.Status)
	}
	if env == nil || !bytes.Equal(env.Payload, []byte{0xAB, 0xCD}) {
		t.Errorf("DecodeEnvelope() should keep the payload for diagnostics, got %+v", env)
	}
}

func TestEncodeEnvelope_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		status  byte
		payload []byte
	}{
		{"empty", 0x00, nil},
		{"payload", 0x00, []byte{0x01, 0x02, 0x03}},
		{"error", 0x12, []byte{0xFF}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := EncodeEnvelope(0x29, tc.status, tc.payload)
			env, err := DecodeEnvelope(data)
			if tc.status == StatusSuccess && err != nil {
				t.Fatalf("DecodeEnvelope() error = %v", err)
			}
			if tc.status != StatusSuccess && !IsDeviceError(err) {
				t.Fatalf("DecodeEnvelope() error = %v, want *DeviceError", err)
			}
			if env.Status != tc.status {
				t.Errorf("Status = 0x%02X, want 0x%02X", env.Status, tc.status)
			}
			if !bytes.Equal(env.Payload, tc.payload) && len(tc.payload) > 0 {
				t.Errorf("Payload = % X, want % X", env.Payload, tc.payload)
			}
			if int(env.Length) != 1+len(tc.payload) {
				t.Errorf("Length = %d, want %d", env.Length, 1+len(tc.payload))
			}
		})
	}
}

func TestEncodeReply_Header(t *testing.T) {
	data := EncodeReply(CmdGetBrightness, []byte{0x00, 0x40})
	expected := []byte{0x4F, 0x42, 0x22, 0x00, 0x02, 0x00, 0x04, 0x00, 0x00, 0x40}
	if !bytes.Equal(data, expected) {
		t.Errorf("EncodeReply() = % X, want % X", data, expected)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	inner := errors.New("port closed")
	err := &TransportError{Op: "send", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(TransportError, inner) = false, want true")
	}
	if !IsTransportError(err) {
		t.Error("IsTransportError() = false, want true")
	}
	if IsDeviceError(err) {
		t.Error("IsDeviceError(TransportError) = true, want false")
	}
}

func TestDeviceError_Message(t *testing.T) {
	err := &DeviceError{Command: "OTAStart", Status: 0x12}
	expected := "OTAStart failed: rejected (0x12)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	err = &DeviceError{Status: 0x01}
	expected = "device error: unknown error (0x01)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
