package protocol

// Frame markers. Host frames start with "EM", device replies with "OB".
const (
	Magic0 = 0x45
	Magic1 = 0x4D
	Sync0  = 0x4F
	Sync1  = 0x42
)

// Command codes
const (
	CmdToggleNotification = 0x05
	CmdReadBattery        = 0x10
	CmdOTAData            = 0x1A
	CmdReboot             = 0x1B
	CmdSetBrightness      = 0x21
	CmdGetBrightness      = 0x22
	CmdGetVersionList     = 0x29
	CmdSetVersion         = 0x2B
	CmdOTAStart           = 0x7B
	CmdOTAFailed          = 0x7C
	CmdSetOTAMode         = 0x7D
	CmdGetNotifications   = 0xA2
	CmdLeaveNavigation    = 0x8F
	CmdEnterAgent         = 0xCC
	CmdLeaveAgent         = 0xCD
)

// Header sizes
const (
	FrameHeaderSize    = 8
	EnvelopeHeaderSize = 5
	StatusOffset       = 5

	// MaxValueLength is the largest payload the 15-bit length field can carry.
	MaxValueLength = 1<<15 - 1
)

// PacketType is the low bit of the type/length field.
type PacketType uint8

const (
	PacketData    PacketType = 0
	PacketControl PacketType = 1
)

// Status codes reported by the glasses
const (
	StatusSuccess  = 0x00
	StatusRejected = 0x12
)

// StatusMessage returns human-readable message for a device status code
func StatusMessage(code byte) string {
	switch code {
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown error"
	}
}

// CommandName returns a short name for a command code.
func CommandName(code uint16) string {
	switch code {
	case CmdToggleNotification:
		return "ToggleNotification"
	case CmdReadBattery:
		return "ReadBattery"
	case CmdOTAData:
		return "SendOTAData"
	case CmdReboot:
		return "Reboot"
	case CmdSetBrightness:
		return "SetBrightness"
	case CmdGetBrightness:
		return "GetBrightness"
	case CmdGetVersionList:
		return "GetVersionList"
	case CmdSetVersion:
		return "SetVersion"
	case CmdOTAStart:
		return "OTAStart"
	case CmdOTAFailed:
		return "OTAFailed"
	case CmdSetOTAMode:
		return "SetOTAMode"
	case CmdGetNotifications:
		return "GetNotificationSettings"
	default:
		return "unknown"
	}
}
