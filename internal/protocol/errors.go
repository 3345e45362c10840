package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooShort is returned when a buffer is shorter than its fixed header.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrResponseTimeout is returned when no response arrives in time.
	ErrResponseTimeout = errors.New("response timeout")

	// ErrAckMismatch is returned when an OTA ack names a different packet index.
	ErrAckMismatch = errors.New("ack index mismatch")
)

// DeviceError is a well-formed response carrying a nonzero status.
type DeviceError struct {
	Command string
	Status  byte
}

func (e *DeviceError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("device error: %s (0x%02X)", StatusMessage(e.Status), e.Status)
	}
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Command, StatusMessage(e.Status), e.Status)
}

// TransportError wraps a failure of the underlying link.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsDeviceError reports whether err carries a device status.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
