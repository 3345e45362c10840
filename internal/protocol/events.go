package protocol

import (
	"bytes"
	"encoding/binary"
)

// EventKind identifies an unsolicited message from the glasses.
type EventKind int

const (
	EventNone EventKind = iota
	EventBattery
	EventEnterAgent
	EventLeaveAgent
	EventLeaveNavigation
	EventCancelPair
)

func (k EventKind) String() string {
	switch k {
	case EventBattery:
		return "battery"
	case EventEnterAgent:
		return "enter_agent"
	case EventLeaveAgent:
		return "leave_agent"
	case EventLeaveNavigation:
		return "leave_navigation"
	case EventCancelPair:
		return "cancel_pair"
	default:
		return "none"
	}
}

// Event is a decoded unsolicited device message.
type Event struct {
	Kind    EventKind
	Battery int
	Raw     []byte
}

var (
	enterAgentPrefix      = []byte{0x45, 0x4D, 0xCC, 0x00, 0x01, 0x00, 0x02, 0x00, 0x01}
	leaveAgentPrefix      = []byte{0x45, 0x4D, 0xCD, 0x00, 0x01, 0x00, 0x02, 0x00, 0x01}
	cancelPairPrefix1     = []byte{0x4F, 0x42, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x1C}
	cancelPairPrefix2     = []byte{0x4F, 0x42, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x14}
	batteryPrefix         = []byte{0x45, 0x4D, 0x10, 0x00, 0x02, 0x00, 0x04, 0x00}
	batteryReplyPrefix    = []byte{0x4F, 0x42, 0x10, 0x00, 0x03, 0x00, 0x06, 0x00}
	leaveNavigationPrefix = []byte{0x45, 0x4D, 0x8F, 0x00, 0x12, 0x00, 0x24, 0x00}
)

// ParseEvent recognises unsolicited device messages. It returns false for
// anything that should be treated as a command response.
func ParseEvent(data []byte) (Event, bool) {
	switch {
	case bytes.HasPrefix(data, enterAgentPrefix):
		return Event{Kind: EventEnterAgent, Raw: data}, true
	case bytes.HasPrefix(data, leaveAgentPrefix):
		return Event{Kind: EventLeaveAgent, Raw: data}, true
	case bytes.HasPrefix(data, cancelPairPrefix1), bytes.HasPrefix(data, cancelPairPrefix2):
		return Event{Kind: EventCancelPair, Raw: data}, true
	case bytes.HasPrefix(data, batteryPrefix), bytes.HasPrefix(data, batteryReplyPrefix):
		if len(data) < len(batteryPrefix)+2 {
			return Event{}, false
		}
		level := binary.LittleEndian.Uint16(data[len(data)-2:])
		return Event{Kind: EventBattery, Battery: int(level), Raw: data}, true
	case bytes.HasPrefix(data, leaveNavigationPrefix):
		return Event{Kind: EventLeaveNavigation, Raw: data}, true
	}
	return Event{}, false
}

// EncodeBatteryEvent builds the battery notification the glasses push.
func EncodeBatteryEvent(level uint16) []byte {
	data := make([]byte, len(batteryPrefix)+2)
	copy(data, batteryPrefix)
	binary.LittleEndian.PutUint16(data[len(batteryPrefix):], level)
	return data
}
