package protocol

import "testing"

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		kind    EventKind
		battery int
	}{
		{"enter agent", []byte{0x45, 0x4D, 0xCC, 0x00, 0x01, 0x00, 0x02, 0x00, 0x01}, EventEnterAgent, 0},
		{"leave agent", []byte{0x45, 0x4D, 0xCD, 0x00, 0x01, 0x00, 0x02, 0x00, 0x01}, EventLeaveAgent, 0},
		{"battery", []byte{0x45, 0x4D, 0x10, 0x00, 0x02, 0x00, 0x04, 0x00, 0x55, 0x00}, EventBattery, 85},
		{"battery reply", []byte{0x4F, 0x42, 0x10, 0x00, 0x03, 0x00, 0x06, 0x00, 0x00, 0x40, 0x00}, EventBattery, 64},
		{"leave navigation", append([]byte{0x45, 0x4D, 0x8F, 0x00, 0x12, 0x00, 0x24, 0x00}, make([]byte, 18)...), EventLeaveNavigation, 0},
		{"cancel pair", []byte{0x4F, 0x42, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x1C}, EventCancelPair, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := ParseEvent(tc.data)
			if !ok {
				t.Fatalf("ParseEvent(% X) ok = false, want true", tc.data)
			}
			if ev.Kind != tc.kind {
				t.Errorf("ParseEvent() Kind = %v, want %v", ev.Kind, tc.kind)
			}
			if ev.Battery != tc.battery {
				t.Errorf("ParseEvent() Battery = %d, want %d", ev.Battery, tc.battery)
			}
		})
	}
}

func TestParseEvent_Responses(t *testing.T) {
	responses := [][]byte{
		EncodeEnvelope(CmdOTAData, 0x00, []byte{0x01, 0x00, 0x00, 0x00, 0x00}),
		EncodeEnvelope(CmdGetVersionList, 0x00, []byte{0, 0, 0, 1, 2, 3, 4}),
		EncodeReply(CmdGetBrightness, []byte{0x00, 0x20}),
		{0x45, 0x4D, 0x10, 0x00, 0x02, 0x00, 0x04, 0x00}, // battery without a value
	}

	for _, data := range responses {
		if ev, ok := ParseEvent(data); ok {
			t.Errorf("ParseEvent(% X) = %v, want not an event", data, ev.Kind)
		}
	}
}

func TestEncodeBatteryEvent(t *testing.T) {
	ev, ok := ParseEvent(EncodeBatteryEvent(42))
	if !ok || ev.Kind != EventBattery || ev.Battery != 42 {
		t.Errorf("ParseEvent(EncodeBatteryEvent(42)) = %+v, %v", ev, ok)
	}
}
