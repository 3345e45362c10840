// Package emulator is a scripted stand-in for the glasses. It answers the
// command set over any link.Transport and records what it was sent.
package emulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/firmware"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

// Device is an emulated pair of glasses.
type Device struct {
	mu sync.Mutex

	versions      map[uint32]string
	brightness    int
	notifications bool
	battery       int

	otaMode     bool
	otaFailed   bool
	otaTotal    uint32
	received    int
	seenTypes   map[byte]bool
	installed   uint32
	rebooted    bool
	commands    []uint16
	packetFault func(index uint32, attempt int) []byte
	attempts    map[uint32]int
	silent      map[uint16]bool

	log zerolog.Logger
}

// New creates an emulated device reporting the given component versions.
func New(versions map[uint32]string) *Device {
	v := make(map[uint32]string, len(versions))
	for k, s := range versions {
		v[k] = s
	}
	return &Device{
		versions:      v,
		brightness:    50,
		notifications: true,
		battery:       80,
		seenTypes:     make(map[byte]bool),
		attempts:      make(map[uint32]int),
		silent:        make(map[uint16]bool),
		log:           zerolog.Nop(),
	}
}

// SetLogger sets the logger.
func (d *Device) SetLogger(l zerolog.Logger) {
	d.log = l.With().Str("component", "emulator").Logger()
}

// SetPacketFault installs a hook that can replace the ack for an OTA data
// packet. Returning nil sends the normal ack.
func (d *Device) SetPacketFault(fn func(index uint32, attempt int) []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.packetFault = fn
}

// Silence makes the device ignore a command code.
func (d *Device) Silence(code uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[code] = true
}

// SetBattery sets the level reported by the next battery read.
func (d *Device) SetBattery(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.battery = level
}

// Serve answers requests on t until ctx is done or t fails.
func (d *Device) Serve(ctx context.Context, t link.Transport) error {
	for {
		frame, err := t.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, link.ErrClosed) {
				return nil
			}
			return err
		}

		for _, reply := range d.Handle(frame) {
			if err := t.Send(ctx, reply); err != nil {
				return err
			}
		}
	}
}

// Handle processes one host frame and returns the device's replies.
func (d *Device) Handle(frame []byte) [][]byte {
	f, err := protocol.DecodeFrame(frame)
	if err != nil {
		d.log.Debug().Err(err).Hex("frame", frame).Msg("ignoring frame")
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.commands = append(d.commands, f.Code)
	if d.silent[f.Code] {
		return nil
	}

	switch f.Code {
	case protocol.CmdGetVersionList:
		return [][]byte{d.versionList()}
	case protocol.CmdSetOTAMode:
		d.otaMode = true
	case protocol.CmdOTAStart:
		if len(f.Payload) >= 4 {
			d.otaTotal = binary.LittleEndian.Uint32(f.Payload)
		}
	case protocol.CmdOTAData:
		return [][]byte{d.otaPacket(frame)}
	case protocol.CmdSetVersion:
		if len(f.Payload) >= 4 {
			d.installed = binary.BigEndian.Uint32(f.Payload)
			for t := range d.seenTypes {
				d.versions[uint32(t)] = firmware.VersionString(d.installed)
			}
		}
	case protocol.CmdOTAFailed:
		d.otaFailed = true
		d.otaMode = false
	case protocol.CmdReboot:
		d.rebooted = true
		d.otaMode = false
	case protocol.CmdGetBrightness:
		return [][]byte{protocol.EncodeReply(protocol.CmdGetBrightness, []byte{protocol.StatusSuccess, byte(d.brightness)})}
	case protocol.CmdSetBrightness:
		if len(f.Payload) >= 1 {
			d.brightness = int(f.Payload[0])
		}
	case protocol.CmdToggleNotification:
		if len(f.Payload) >= 1 {
			d.notifications = f.Payload[0] == 0x01
		}
	case protocol.CmdGetNotifications:
		return [][]byte{d.notificationSettings()}
	case protocol.CmdReadBattery:
		return [][]byte{protocol.EncodeBatteryEvent(uint16(d.battery))}
	default:
		d.log.Debug().Uint16("code", f.Code).Msg("unhandled command")
	}
	return nil
}

func (d *Device) versionList() []byte {
	payload := []byte{0x00, 0x00, 0x00}
	for typ, v := range d.versions {
		var major, minor, patch int
		fmt.Sscanf(v, "%d.%d.%d", &major, &minor, &patch)
		payload = append(payload, byte(major), byte(minor), byte(patch), byte(typ))
	}
	return protocol.EncodeEnvelope(protocol.CmdGetVersionList, protocol.StatusSuccess, payload)
}

func (d *Device) otaPacket(frame []byte) []byte {
	info, ok, err := firmware.ParsePacket(frame)
	if err != nil || !ok {
		return protocol.EncodeEnvelope(protocol.CmdOTAData, protocol.StatusRejected, make([]byte, 5))
	}

	attempt := d.attempts[info.Index]
	d.attempts[info.Index] = attempt + 1
	if d.packetFault != nil {
		if reply := d.packetFault(info.Index, attempt); reply != nil {
			return reply
		}
	}

	d.received++
	d.seenTypes[info.BinType] = true
	return Ack(protocol.StatusSuccess, info.BinType, info.Index)
}

func (d *Device) notificationSettings() []byte {
	value := append([]byte(protocol.NotificationAll), 0x00)
	if d.notifications {
		value[len(value)-1] = 0x01
	}
	payload := []byte{protocol.StatusSuccess, 0x01, byte(len(value)), 0x00}
	return protocol.EncodeReply(protocol.CmdGetNotifications, append(payload, value...))
}

// Ack builds an OTA data packet ack.
func Ack(status, binType byte, index uint32) []byte {
	payload := make([]byte, 5)
	payload[0] = binType
	binary.LittleEndian.PutUint32(payload[1:], index)
	return protocol.EncodeEnvelope(protocol.CmdOTAData, status, payload)
}

// State is a snapshot of what the device has been told.
type State struct {
	OTAMode       bool
	OTAFailed     bool
	OTATotal      uint32
	Received      int
	Installed     uint32
	Rebooted      bool
	Brightness    int
	Notifications bool
	Commands      []uint16
	Versions      map[uint32]string
}

// State returns a snapshot of the device.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	versions := make(map[uint32]string, len(d.versions))
	for k, v := range d.versions {
		versions[k] = v
	}
	return State{
		OTAMode:       d.otaMode,
		OTAFailed:     d.otaFailed,
		OTATotal:      d.otaTotal,
		Received:      d.received,
		Installed:     d.installed,
		Rebooted:      d.rebooted,
		Brightness:    d.brightness,
		Notifications: d.notifications,
		Commands:      append([]uint16(nil), d.commands...),
		Versions:      versions,
	}
}
