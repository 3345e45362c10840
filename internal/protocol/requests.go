package protocol

import (
	"encoding/binary"
	"fmt"
)

// Command is a request that can be written to the glasses.
type Command interface {
	Name() string
	Code() uint16
	Frame() []byte
}

// ResultCommand is a command that expects a response from the glasses.
type ResultCommand[T any] interface {
	Command
	ParseResult(data []byte) (T, error)
}

// VersionList maps a component type to its "major.minor.patch" version.
type VersionList map[uint32]string

// Offsets inside settings replies, which carry a full 8-byte header.
const (
	versionListOffset  = 9
	versionListMinSize = 7
	replyStatusOffset  = 8
	replyValueOffset   = 9
	notificationOffset = 9
	otaAckSize         = 11
)

// GetVersionList reads the firmware version of every component.
type GetVersionList struct{}

func (GetVersionList) Name() string  { return "GetVersionList" }
func (GetVersionList) Code() uint16  { return CmdGetVersionList }
func (GetVersionList) Frame() []byte { return Encode(CmdGetVersionList, PacketData, nil) }

// ParseResult reads 4-byte entries [major minor patch type]. A trailing
// partial entry is ignored.
func (GetVersionList) ParseResult(data []byte) (VersionList, error) {
	if _, err := DecodeEnvelope(data); err != nil {
		return nil, err
	}
	if len(data) < versionListMinSize {
		return nil, fmt.Errorf("%w: version list is %d bytes, need %d", ErrFrameTooShort, len(data), versionListMinSize)
	}

	versions := make(VersionList)
	for off := versionListOffset; off+4 <= len(data); off += 4 {
		major, minor, patch, typ := data[off], data[off+1], data[off+2], data[off+3]
		versions[uint32(typ)] = fmt.Sprintf("%d.%d.%d", major, minor, patch)
	}
	return versions, nil
}

// OTAStart announces the total number of bytes the transfer will carry.
type OTAStart struct {
	TotalLength uint32
}

func (OTAStart) Name() string { return "OTAStart" }
func (OTAStart) Code() uint16 { return CmdOTAStart }
func (c OTAStart) Frame() []byte {
	return EncodeUint32(CmdOTAStart, c.TotalLength, binary.LittleEndian)
}

// OTAPacketAck is the device's answer to one OTA data packet.
type OTAPacketAck struct {
	Status  byte
	BinType byte
	Index   uint32
}

// SendOTAData carries one prebuilt OTA data packet.
type SendOTAData struct {
	Packet []byte
	Index  int
	Total  int
}

func (SendOTAData) Name() string    { return "SendOTAData" }
func (SendOTAData) Code() uint16    { return CmdOTAData }
func (c SendOTAData) Frame() []byte { return c.Packet }

// ParseResult reads status(1) + binType(1) + index(4, LE) after the header.
func (SendOTAData) ParseResult(data []byte) (OTAPacketAck, error) {
	if _, err := DecodeEnvelope(data); err != nil {
		return OTAPacketAck{}, err
	}
	if len(data) < otaAckSize {
		return OTAPacketAck{}, fmt.Errorf("%w: ota ack is %d bytes, need %d", ErrFrameTooShort, len(data), otaAckSize)
	}

	return OTAPacketAck{
		Status:  data[StatusOffset],
		BinType: data[6],
		Index:   binary.LittleEndian.Uint32(data[7:11]),
	}, nil
}

// SetOTAMode switches the glasses into firmware update mode.
type SetOTAMode struct{}

func (SetOTAMode) Name() string  { return "SetOTAMode" }
func (SetOTAMode) Code() uint16  { return CmdSetOTAMode }
func (SetOTAMode) Frame() []byte { return Encode(CmdSetOTAMode, PacketData, nil) }

// OTAFailed tells the glasses to abandon the current transfer.
type OTAFailed struct{}

func (OTAFailed) Name() string  { return "OTAFailed" }
func (OTAFailed) Code() uint16  { return CmdOTAFailed }
func (OTAFailed) Frame() []byte { return Encode(CmdOTAFailed, PacketData, nil) }

// Reboot restarts the glasses.
type Reboot struct{}

func (Reboot) Name() string  { return "Reboot" }
func (Reboot) Code() uint16  { return CmdReboot }
func (Reboot) Frame() []byte { return Encode(CmdReboot, PacketData, []byte{0x10}) }

// SetVersion records the installed bundle version. The payload is big-endian.
type SetVersion struct {
	Version uint32
}

func (SetVersion) Name() string { return "SetVersion" }
func (SetVersion) Code() uint16 { return CmdSetVersion }
func (c SetVersion) Frame() []byte {
	return EncodeUint32(CmdSetVersion, c.Version, binary.BigEndian)
}

// GetBrightness reads the display brightness.
type GetBrightness struct{}

func (GetBrightness) Name() string  { return "GetBrightness" }
func (GetBrightness) Code() uint16  { return CmdGetBrightness }
func (GetBrightness) Frame() []byte { return Encode(CmdGetBrightness, PacketData, nil) }

func (GetBrightness) ParseResult(data []byte) (int, error) {
	if len(data) <= replyStatusOffset {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}
	if status := data[replyStatusOffset]; status != StatusSuccess {
		return 0, &DeviceError{Command: "GetBrightness", Status: status}
	}
	if len(data) <= replyValueOffset {
		return 0, fmt.Errorf("%w: %d bytes, no value", ErrFrameTooShort, len(data))
	}
	return int(data[replyValueOffset]), nil
}

// SetBrightness sets the display brightness.
type SetBrightness struct {
	Level uint8
}

func (SetBrightness) Name() string { return "SetBrightness" }
func (SetBrightness) Code() uint16 { return CmdSetBrightness }
func (c SetBrightness) Frame() []byte {
	return Encode(CmdSetBrightness, PacketData, []byte{c.Level})
}

// ToggleNotification turns notification delivery to the display on or off.
type ToggleNotification struct {
	On bool
}

func (ToggleNotification) Name() string { return "ToggleNotification" }
func (ToggleNotification) Code() uint16 { return CmdToggleNotification }
func (c ToggleNotification) Frame() []byte {
	var v byte
	if c.On {
		v = 0x01
	}
	return Encode(CmdToggleNotification, PacketData, []byte{v})
}

// NotificationAll is the bundle id of the master notification switch.
const NotificationAll = "main_sw"

// NotificationSettings maps an app bundle id to whether it may notify.
type NotificationSettings map[string]bool

// GetNotificationSettings reads the per-app notification switches.
type GetNotificationSettings struct{}

func (GetNotificationSettings) Name() string  { return "GetNotificationSettings" }
func (GetNotificationSettings) Code() uint16  { return CmdGetNotifications }
func (GetNotificationSettings) Frame() []byte { return Encode(CmdGetNotifications, PacketData, nil) }

// ParseResult walks TLV entries tag(1) + len(2, LE) + bundle id + on/off byte.
func (GetNotificationSettings) ParseResult(data []byte) (NotificationSettings, error) {
	if len(data) <= notificationOffset {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(data))
	}
	if status := data[replyStatusOffset]; status != StatusSuccess {
		return nil, &DeviceError{Command: "GetNotificationSettings", Status: status}
	}

	settings := make(NotificationSettings)
	off := notificationOffset
	for off+3 <= len(data) {
		n := int(binary.LittleEndian.Uint16(data[off+1 : off+3]))
		off += 3
		if off+n > len(data) {
			break
		}
		value := data[off : off+n]
		off += n

		if len(value) < 2 {
			continue
		}
		settings[string(value[:len(value)-1])] = value[len(value)-1] == 0x01
	}
	return settings, nil
}

// ReadBattery asks the glasses to report their battery level. The level
// arrives later as an unsolicited event.
type ReadBattery struct{}

func (ReadBattery) Name() string  { return "ReadBattery" }
func (ReadBattery) Code() uint16  { return CmdReadBattery }
func (ReadBattery) Frame() []byte { return Encode(CmdReadBattery, PacketData, nil) }
