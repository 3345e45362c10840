package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KonamiWu/lenslink/internal/agent"
	"github.com/KonamiWu/lenslink/internal/emulator"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

type fakeNavigator struct {
	mu      sync.Mutex
	started []agent.Navigation
	err     error
}

func (n *fakeNavigator) Start(_ context.Context, nav agent.Navigation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, nav)
	return n.err
}

type harness struct {
	dev     *emulator.Device
	ctrl    *Controller
	router  *agent.Router
	replies []agent.Response
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{dev: emulator.New(map[uint32]string{0x22: "1.2.3", 0x23: "0.9.0"})}
	host, end := link.Pipe()

	var ctrl *Controller
	l := link.New(host,
		link.WithResponseTimeout(200*time.Millisecond),
		link.WithEventHandler(func(ev protocol.Event) { ctrl.HandleEvent(ev) }),
	)
	ctrl = New(l, append([]Option{WithBatteryWait(200 * time.Millisecond)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	go h.dev.Serve(ctx, end)
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		l.Close()
	})

	h.ctrl = ctrl
	h.router = agent.NewRouter()
	ctrl.Register(h.router)
	return h
}

func (h *harness) dispatch(t *testing.T, tool agent.Tool, args string) (agent.Outcome, agent.Response) {
	t.Helper()
	a, err := agent.ParseArgs([]byte(args))
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	var got []agent.Response
	call := agent.Call{Tool: tool.Raw(), Args: a, Reply: agent.NewReply(func(r agent.Response) error {
		got = append(got, r)
		return nil
	})}
	outcome := h.router.Dispatch(context.Background(), call)
	if len(got) > 1 {
		t.Fatalf("got %d replies, want at most 1", len(got))
	}
	if len(got) == 0 {
		return outcome, agent.Response{}
	}
	return outcome, got[0]
}

func TestBrightness(t *testing.T) {
	h := newHarness(t)

	_, resp := h.dispatch(t, agent.ToolBrightness, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.BrightnessData); !ok || data.Level != 50 {
		t.Errorf("brightness get = %+v, want level 50", resp)
	}

	_, resp = h.dispatch(t, agent.ToolBrightness, `{"operation":"set","level":"75"}`)
	if !resp.OK() {
		t.Fatalf("brightness set = %+v, want ok", resp)
	}
	if state := h.dev.State(); state.Brightness != 75 {
		t.Errorf("device brightness = %d, want 75", state.Brightness)
	}

	_, resp = h.dispatch(t, agent.ToolBrightness, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.BrightnessData); !ok || data.Level != 75 {
		t.Errorf("brightness get = %+v, want level 75", resp)
	}
}

func TestBrightness_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		message string
	}{
		{"too high", `{"operation":"set","level":101}`, "Invalid value for 'level': must be between 0 and 100"},
		{"negative", `{"operation":"set","level":-1}`, "Invalid value for 'level': must be between 0 and 100"},
		{"not a number", `{"operation":"set","level":"bright"}`, `Invalid value for 'level': "bright" is not an integer`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			outcome, resp := h.dispatch(t, agent.ToolBrightness, tc.args)
			if outcome != agent.OutcomeRejected || resp.Message != tc.message {
				t.Errorf("dispatch() = %v, %q, want rejected, %q", outcome, resp.Message, tc.message)
			}
			if state := h.dev.State(); state.Brightness != 50 {
				t.Errorf("device brightness = %d, want unchanged 50", state.Brightness)
			}
		})
	}
}

func TestBrightness_DeviceSilent(t *testing.T) {
	h := newHarness(t)
	h.dev.Silence(protocol.CmdGetBrightness)

	outcome, resp := h.dispatch(t, agent.ToolBrightness, `{"operation":"get"}`)
	if outcome != agent.OutcomeFailed || resp.Message != "Failed to read brightness" {
		t.Errorf("dispatch() = %v, %+v, want failed read brightness", outcome, resp)
	}
}

func TestDND(t *testing.T) {
	h := newHarness(t)

	_, resp := h.dispatch(t, agent.ToolDND, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.DNDData); !ok || data.Enabled {
		t.Errorf("dnd get = %+v, want disabled", resp)
	}

	_, resp = h.dispatch(t, agent.ToolDND, `{"operation":"set","enabled":"true"}`)
	if !resp.OK() {
		t.Fatalf("dnd set = %+v, want ok", resp)
	}
	if h.dev.State().Notifications {
		t.Error("device notifications = true, want false")
	}

	_, resp = h.dispatch(t, agent.ToolDND, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.DNDData); !ok || !data.Enabled {
		t.Errorf("dnd get = %+v, want enabled", resp)
	}

	outcome, resp := h.dispatch(t, agent.ToolDND, `{"operation":"set","enabled":"maybe"}`)
	if outcome != agent.OutcomeRejected || !strings.Contains(resp.Message, "'enabled'") {
		t.Errorf("dnd set maybe = %v, %+v, want invalid value", outcome, resp)
	}
}

func TestBattery(t *testing.T) {
	h := newHarness(t)
	h.dev.SetBattery(64)

	_, resp := h.dispatch(t, agent.ToolBattery, `{"operation":"get"}`)
	data, ok := resp.Data.(agent.BatteryData)
	if !ok || data.Level != 64 || data.IsCharging {
		t.Errorf("battery get = %+v, want level 64", resp)
	}
	if h.ctrl.Battery() != 64 {
		t.Errorf("Battery() = %d, want 64", h.ctrl.Battery())
	}
}

func TestBattery_SilentUsesLastLevel(t *testing.T) {
	h := newHarness(t)
	h.ctrl.HandleEvent(protocol.Event{Kind: protocol.EventBattery, Battery: 33})
	h.dev.Silence(protocol.CmdReadBattery)

	_, resp := h.dispatch(t, agent.ToolBattery, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.BatteryData); !ok || data.Level != 33 {
		t.Errorf("battery get = %+v, want level 33", resp)
	}
}

func TestBattery_NeverReported(t *testing.T) {
	h := newHarness(t)
	h.dev.Silence(protocol.CmdReadBattery)

	if _, err := h.ctrl.ReadBattery(context.Background()); !errors.Is(err, ErrBatteryUnknown) {
		t.Errorf("ReadBattery() error = %v, want %v", err, ErrBatteryUnknown)
	}
	outcome, resp := h.dispatch(t, agent.ToolBattery, `{"operation":"get"}`)
	if outcome != agent.OutcomeFailed || resp.Message != "Failed to read battery level" {
		t.Errorf("battery get = %v, %+v, want failure", outcome, resp)
	}
}

func TestLanguage(t *testing.T) {
	h := newHarness(t)

	_, resp := h.dispatch(t, agent.ToolLanguage, `{"operation":"get"}`)
	if data, ok := resp.Data.(agent.LanguageData); !ok || data.Language != DefaultLanguage {
		t.Errorf("language get = %+v, want %s", resp, DefaultLanguage)
	}

	_, resp = h.dispatch(t, agent.ToolLanguage, `{"operation":"set","language":"ja-jp"}`)
	if !resp.OK() {
		t.Fatalf("language set = %+v, want ok", resp)
	}
	if h.ctrl.Language() != "ja-JP" {
		t.Errorf("Language() = %q, want %q", h.ctrl.Language(), "ja-JP")
	}

	outcome, _ := h.dispatch(t, agent.ToolLanguage, `{"operation":"set","language":"klingon"}`)
	if outcome != agent.OutcomeRejected {
		t.Errorf("language set klingon = %v, want %v", outcome, agent.OutcomeRejected)
	}
	if h.ctrl.Language() != "ja-JP" {
		t.Errorf("Language() = %q after rejected set, want %q", h.ctrl.Language(), "ja-JP")
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t)

	_, resp := h.dispatch(t, agent.ToolVersion, `{}`)
	data, ok := resp.Data.(agent.MessageOnly)
	if !ok || data.Message != "0x22 1.2.3, 0x23 0.9.0" {
		t.Errorf("version = %+v, want summary", resp)
	}
}

func TestVersionSummary_Empty(t *testing.T) {
	if result := VersionSummary(nil); result != "no firmware components reported" {
		t.Errorf("VersionSummary(nil) = %q", result)
	}
}

func TestUnsupportedTools(t *testing.T) {
	h := newHarness(t)

	outcome, resp := h.dispatch(t, agent.ToolVolume, `{"operation":"get"}`)
	if outcome != agent.OutcomeNotImplemented || resp.Status != agent.StatusError {
		t.Errorf("volume = %v, %+v, want not implemented error", outcome, resp)
	}
	outcome, _ = h.dispatch(t, agent.ToolNavigationPage, `{"destination":"A"}`)
	if outcome != agent.OutcomeNotImplemented {
		t.Errorf("navigation without navigator = %v, want %v", outcome, agent.OutcomeNotImplemented)
	}
}

func TestNavigation(t *testing.T) {
	nav := &fakeNavigator{}
	h := newHarness(t, WithNavigator(nav))

	var got []agent.Response
	a, _ := agent.ParseArgs([]byte(`{"destination":"Taipei 101","mode":"motorcycle"}`))
	call := agent.Call{Tool: agent.ToolNavigationPage.Raw(), Args: a, Reply: agent.NewReply(func(r agent.Response) error {
		got = append(got, r)
		return nil
	})}
	if outcome := h.router.Dispatch(context.Background(), call); outcome != agent.OutcomeHandled {
		t.Fatalf("Dispatch() = %v, want %v", outcome, agent.OutcomeHandled)
	}
	if len(nav.started) != 1 || nav.started[0] != (agent.Navigation{Destination: "Taipei 101", Mode: agent.TravelMotorcycle}) {
		t.Errorf("navigator started = %+v", nav.started)
	}
	if len(got) != 0 {
		t.Fatalf("replies = %+v, want none before completion", got)
	}

	if err := h.ctrl.NavigationFailed("find a route"); err != nil {
		t.Fatalf("NavigationFailed() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "Failed to find a route" {
		t.Errorf("replies = %+v, want route failure", got)
	}
}

func TestNavigation_LeaveEventCompletes(t *testing.T) {
	h := newHarness(t, WithNavigator(&fakeNavigator{}))

	var got []agent.Response
	a, _ := agent.ParseArgs([]byte(`{"destination":"home"}`))
	h.router.Dispatch(context.Background(), agent.Call{Tool: agent.ToolNavigationPage.Raw(), Args: a,
		Reply: agent.NewReply(func(r agent.Response) error {
			got = append(got, r)
			return nil
		})})

	h.ctrl.HandleEvent(protocol.Event{Kind: protocol.EventLeaveNavigation})
	if len(got) != 1 || !got[0].OK() {
		t.Errorf("replies = %+v, want one ok", got)
	}
	if h.router.NavigationPending() {
		t.Error("NavigationPending() = true after leave event")
	}
}

func TestNavigation_StartFails(t *testing.T) {
	h := newHarness(t, WithNavigator(&fakeNavigator{err: errors.New("no gps")}))

	outcome, resp := h.dispatch(t, agent.ToolNavigationPage, `{"destination":"A"}`)
	if outcome != agent.OutcomeFailed || resp.Message != "Failed to start navigation" {
		t.Errorf("dispatch() = %v, %+v, want start failure", outcome, resp)
	}
}
