// Package device answers agent tool calls with the glasses' own settings:
// brightness, do-not-disturb, battery, language, firmware versions and
// navigation.
package device

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/agent"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

// Link is the command channel to the glasses.
type Link interface {
	link.Requester
	Send(ctx context.Context, cmd protocol.Command) error
}

// Navigator starts turn-by-turn navigation. Failures after Start returns
// are reported with Controller.NavigationFailed.
type Navigator interface {
	Start(ctx context.Context, nav agent.Navigation) error
}

// ErrBatteryUnknown is returned when the device never reported a level.
var ErrBatteryUnknown = errors.New("battery level not reported")

// Controller backs agent tools with device commands.
type Controller struct {
	link   Link
	config Config
	log    zerolog.Logger

	mu       sync.Mutex
	router   *agent.Router
	battery  int
	updated  chan struct{}
	language string
}

// New creates a controller talking over l.
func New(l Link, opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{
		link:     l,
		config:   cfg,
		log:      cfg.Logger.With().Str("component", "device").Logger(),
		battery:  -1,
		updated:  make(chan struct{}),
		language: cfg.Language,
	}
}

// Register installs the controller's handlers on r.
func (c *Controller) Register(r *agent.Router) {
	c.mu.Lock()
	c.router = r
	c.mu.Unlock()

	r.Handle(agent.ToolBrightness, c.brightness)
	r.Handle(agent.ToolDND, c.dnd)
	r.Handle(agent.ToolBattery, c.batteryTool)
	r.Handle(agent.ToolLanguage, c.languageTool)
	r.Handle(agent.ToolVersion, c.version)
	if c.config.Navigator != nil {
		r.Handle(agent.ToolNavigationPage, c.navigate)
	}
}

// HandleEvent consumes unsolicited device messages. Pass it to
// link.WithEventHandler.
func (c *Controller) HandleEvent(ev protocol.Event) {
	switch ev.Kind {
	case protocol.EventBattery:
		c.mu.Lock()
		c.battery = ev.Battery
		close(c.updated)
		c.updated = make(chan struct{})
		c.mu.Unlock()
		c.log.Debug().Int("level", ev.Battery).Msg("battery level")
	case protocol.EventLeaveNavigation:
		if r := c.currentRouter(); r != nil {
			if err := r.CompleteNavigation(); err != nil && !errors.Is(err, agent.ErrNoPendingNavigation) {
				c.log.Warn().Err(err).Msg("failed to complete navigation")
			}
		}
	default:
		c.log.Debug().Stringer("event", ev.Kind).Msg("ignoring event")
	}
}

// NavigationFailed reports an asynchronous navigation failure to the agent.
func (c *Controller) NavigationFailed(message string) error {
	r := c.currentRouter()
	if r == nil {
		return agent.ErrNoPendingNavigation
	}
	return r.ReplyNavigationError(message)
}

// Battery returns the last reported battery level, or -1.
func (c *Controller) Battery() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.battery
}

// Language returns the preferred language.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

func (c *Controller) currentRouter() *agent.Router {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.router
}

func (c *Controller) brightness(ctx context.Context, req *agent.Request) error {
	if req.Operation == agent.OperationGet {
		level, err := link.Execute(ctx, c.link, protocol.GetBrightness{})
		if err != nil {
			return agent.Fail("read brightness", err)
		}
		return req.Respond(agent.BrightnessGet(level))
	}

	level, err := req.Args.Int("level")
	if err != nil {
		return &agent.InvalidValueError{Param: "level", Reason: err.Error()}
	}
	if level < 0 || level > 100 {
		return &agent.InvalidValueError{Param: "level", Reason: "must be between 0 and 100"}
	}
	if err := c.link.Send(ctx, protocol.SetBrightness{Level: uint8(level)}); err != nil {
		return agent.Fail("set brightness", err)
	}
	c.log.Info().Int("level", level).Msg("brightness set")
	return req.Respond(agent.SetOK(req.Tool))
}

// Do-not-disturb is the inverse of the global notification switch.
func (c *Controller) dnd(ctx context.Context, req *agent.Request) error {
	if req.Operation == agent.OperationGet {
		settings, err := link.Execute(ctx, c.link, protocol.GetNotificationSettings{})
		if err != nil {
			return agent.Fail("read notification settings", err)
		}
		on, ok := settings[protocol.NotificationAll]
		if !ok {
			return agent.Fail("read notification settings", fmt.Errorf("%s not reported", protocol.NotificationAll))
		}
		return req.Respond(agent.DNDGet(!on))
	}

	enabled, ok := req.Args.Bool("enabled")
	if !ok {
		return &agent.InvalidValueError{Param: "enabled", Reason: "expected true or false"}
	}
	if err := c.link.Send(ctx, protocol.ToggleNotification{On: !enabled}); err != nil {
		return agent.Fail("toggle notifications", err)
	}
	c.log.Info().Bool("enabled", enabled).Msg("do not disturb set")
	return req.Respond(agent.SetOK(req.Tool))
}

func (c *Controller) batteryTool(ctx context.Context, req *agent.Request) error {
	level, err := c.ReadBattery(ctx)
	if err != nil {
		return agent.Fail("read battery level", err)
	}
	return req.Respond(agent.BatteryGet(level, false))
}

// ReadBattery asks the device for its level and waits for the report. The
// last known level is returned if the device stays silent.
func (c *Controller) ReadBattery(ctx context.Context) (int, error) {
	c.mu.Lock()
	updated := c.updated
	c.mu.Unlock()

	if err := c.link.Send(ctx, protocol.ReadBattery{}); err != nil {
		return 0, err
	}

	timer := time.NewTimer(c.config.BatteryWait)
	defer timer.Stop()

	select {
	case <-updated:
	case <-timer.C:
		c.log.Debug().Msg("no battery report, using last level")
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if level := c.Battery(); level >= 0 {
		return level, nil
	}
	return 0, ErrBatteryUnknown
}

func (c *Controller) languageTool(_ context.Context, req *agent.Request) error {
	if req.Operation == agent.OperationGet {
		return req.Respond(agent.LanguageGet(c.Language()))
	}

	raw, _ := req.Args.String("language")
	lang, ok := matchLanguage(raw)
	if !ok {
		return &agent.InvalidValueError{
			Param:  "language",
			Reason: "supported languages are " + strings.Join(Languages, ", "),
		}
	}

	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
	c.log.Info().Str("language", lang).Msg("language set")
	return req.Respond(agent.SetOK(req.Tool))
}

func matchLanguage(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, l := range Languages {
		if strings.EqualFold(l, raw) {
			return l, true
		}
	}
	return "", false
}

func (c *Controller) version(ctx context.Context, req *agent.Request) error {
	versions, err := link.Execute(ctx, c.link, protocol.GetVersionList{})
	if err != nil {
		return agent.Fail("read firmware versions", err)
	}
	return req.Respond(agent.DoneWith(req.Tool, VersionSummary(versions)))
}

// VersionSummary renders versions as "0x22 1.2.3, 0x23 1.0.0" ordered by type.
func VersionSummary(versions protocol.VersionList) string {
	if len(versions) == 0 {
		return "no firmware components reported"
	}
	types := make([]uint32, 0, len(versions))
	for t := range versions {
		types = append(types, t)
	}
	slices.Sort(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("0x%02X %s", t, versions[t]))
	}
	return strings.Join(parts, ", ")
}

func (c *Controller) navigate(ctx context.Context, req *agent.Request) error {
	nav := agent.NavigationParams(req.Args)
	c.log.Info().Str("destination", nav.Destination).Str("mode", string(nav.Mode)).Msg("starting navigation")
	if err := c.config.Navigator.Start(ctx, nav); err != nil {
		return agent.Fail("start navigation", err)
	}
	return nil
}
