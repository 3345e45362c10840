package emulator

import (
	"context"
	"testing"
	"time"

	"github.com/KonamiWu/lenslink/internal/firmware"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

func TestHandle_VersionList(t *testing.T) {
	d := New(map[uint32]string{0x22: "0.1.2"})

	replies := d.Handle(protocol.GetVersionList{}.Frame())
	if len(replies) != 1 {
		t.Fatalf("Handle() = %d replies, want 1", len(replies))
	}
	versions, err := protocol.GetVersionList{}.ParseResult(replies[0])
	if err != nil {
		t.Fatalf("ParseResult() error = %v", err)
	}
	if versions[0x22] != "0.1.2" {
		t.Errorf("versions = %v, want map[34:0.1.2]", versions)
	}
}

func TestHandle_OTAPacketAck(t *testing.T) {
	d := New(nil)
	packets := firmware.Packetize(0x05, make([]byte, 600), 512)

	for i, pkt := range packets {
		replies := d.Handle(pkt)
		if len(replies) != 1 {
			t.Fatalf("Handle(packet %d) = %d replies, want 1", i, len(replies))
		}
		ack, err := protocol.SendOTAData{}.ParseResult(replies[0])
		if err != nil {
			t.Fatalf("ParseResult(packet %d) error = %v", i, err)
		}
		if ack.Index != uint32(i) || ack.BinType != 0x05 {
			t.Errorf("ack %d = %+v", i, ack)
		}
	}

	if st := d.State(); st.Received != len(packets) {
		t.Errorf("State().Received = %d, want %d", st.Received, len(packets))
	}
}

func TestHandle_PacketFault(t *testing.T) {
	d := New(nil)
	d.SetPacketFault(func(index uint32, attempt int) []byte {
		if attempt == 0 {
			return Ack(protocol.StatusRejected, 0x05, index)
		}
		return nil
	})
	pkt := firmware.Packetize(0x05, []byte{0x01}, 512)[0]

	if _, err := (protocol.SendOTAData{}).ParseResult(d.Handle(pkt)[0]); !protocol.IsDeviceError(err) {
		t.Errorf("first attempt error = %v, want *DeviceError", err)
	}
	if _, err := (protocol.SendOTAData{}).ParseResult(d.Handle(pkt)[0]); err != nil {
		t.Errorf("second attempt error = %v", err)
	}
}

func TestServe_OverPipe(t *testing.T) {
	host, dev := link.Pipe()
	d := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Serve(ctx, dev)

	l := link.New(host, link.WithResponseTimeout(time.Second))
	go l.Run(ctx)
	defer host.Close()

	if err := l.Send(ctx, protocol.SetBrightness{Level: 70}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	level, err := link.Execute(ctx, l, protocol.GetBrightness{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if level != 70 {
		t.Errorf("brightness = %d, want 70", level)
	}

	if err := l.Send(ctx, protocol.ToggleNotification{On: false}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	settings, err := link.Execute(ctx, l, protocol.GetNotificationSettings{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if on, ok := settings[protocol.NotificationAll]; !ok || on {
		t.Errorf("settings[main_sw] = %v, %v, want false", on, ok)
	}
}
