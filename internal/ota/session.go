package ota

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a step of the firmware transfer.
type State int

const (
	StateIdle State = iota
	StateModeSet
	StateStarting
	StateTransferring
	StateVerifying
	StateRebooting
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateModeSet:
		return "mode_set"
	case StateStarting:
		return "starting"
	case StateTransferring:
		return "transferring"
	case StateVerifying:
		return "verifying"
	case StateRebooting:
		return "rebooting"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session describes one transfer. It lives in memory only.
type Session struct {
	ID             uuid.UUID
	State          State
	TotalLength    uint32
	PacketIndex    int
	TotalPackets   int
	SentPackets    int
	LastAckedIndex int
	DeviceStatus   byte
	StartedAt      time.Time
}

var (
	// ErrBusy is returned when an update is already running.
	ErrBusy = errors.New("update already in progress")

	// ErrCancelled is returned when Cancel stops a running update.
	ErrCancelled = errors.New("update cancelled")
)

// StepError is a fatal failure of one state-machine step.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ChunkError is a data packet that still failed after all retries.
type ChunkError struct {
	BinType  byte
	Index    int
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("packet %d of section 0x%02X failed after %d attempts: %v", e.Index, e.BinType, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// VerificationError lists components the device did not report after the transfer.
type VerificationError struct {
	Missing []uint32
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("device does not report components %v after update", e.Missing)
}
