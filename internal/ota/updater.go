// Package ota drives a firmware transfer to the glasses: mode switch,
// start, stop-and-wait data packets, verification and reboot.
package ota

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/firmware"
	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
)

// Device is the part of a link the updater drives.
type Device interface {
	Send(ctx context.Context, cmd protocol.Command) error
	Request(ctx context.Context, cmd protocol.Command) ([]byte, error)
}

// Report summarises a finished update.
type Report struct {
	SessionID   uuid.UUID
	UpToDate    bool
	Components  []uint32
	Packets     int
	TotalLength uint32
	Versions    protocol.VersionList
	Elapsed     time.Duration
}

type sectionPlan struct {
	binType byte
	packets [][]byte
}

// Updater runs firmware updates over one device link. Only one update
// runs at a time.
type Updater struct {
	dev    Device
	config Config
	log    zerolog.Logger

	mu      sync.Mutex
	running bool
	session *Session
	cancel  context.CancelCauseFunc
}

// New creates an Updater for the given device.
func New(dev Device, opts ...Option) *Updater {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Updater{
		dev:    dev,
		config: cfg,
		log:    cfg.Logger.With().Str("component", "ota").Logger(),
	}
}

// Session returns a copy of the current or last session, or nil.
func (u *Updater) Session() *Session {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session == nil {
		return nil
	}
	s := *u.session
	return &s
}

// Cancel stops a running update. The device is told the transfer failed.
func (u *Updater) Cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		u.cancel(ErrCancelled)
	}
}

// Update transfers the sections of img the device needs.
func (u *Updater) Update(ctx context.Context, img *firmware.Image) (*Report, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	u.mu.Lock()
	if u.running {
		u.mu.Unlock()
		return nil, ErrBusy
	}
	u.running = true
	u.cancel = cancel
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.running = false
		u.cancel = nil
		u.mu.Unlock()
	}()

	versions, err := link.Execute(ctx, u.dev, protocol.GetVersionList{})
	if err != nil {
		return nil, fmt.Errorf("failed to read device versions: %w", cause(ctx, err))
	}

	sections := firmware.FilterUpdateSections(img, versions, u.config.Force)
	if len(sections) == 0 {
		u.log.Info().Msg("device is up to date")
		return &Report{UpToDate: true, Versions: versions}, nil
	}

	plan := make([]sectionPlan, 0, len(sections))
	total := 0
	for _, s := range sections {
		p := sectionPlan{
			binType: s.Header.BinType(),
			packets: firmware.Packetize(s.Header.BinType(), s.WireData(), u.config.MTU),
		}
		total += len(p.packets)
		plan = append(plan, p)
	}

	s := &Session{
		ID:             uuid.New(),
		State:          StateIdle,
		TotalLength:    firmware.TotalLength(sections),
		TotalPackets:   total,
		LastAckedIndex: -1,
		StartedAt:      time.Now(),
	}
	u.mu.Lock()
	u.session = s
	u.mu.Unlock()

	log := u.log.With().Str("session", s.ID.String()).Logger()
	log.Info().
		Int("sections", len(plan)).
		Int("packets", total).
		Uint32("length", s.TotalLength).
		Msg("starting update")

	report := &Report{
		SessionID:   s.ID,
		Packets:     total,
		TotalLength: s.TotalLength,
	}
	for _, p := range plan {
		report.Components = append(report.Components, uint32(p.binType))
	}

	after, err := u.run(ctx, img, plan, report.Components)
	report.Elapsed = time.Since(s.StartedAt)
	if err != nil {
		err = cause(ctx, err)
		u.abort(log, err)
		return report, err
	}

	report.Versions = after
	log.Info().Dur("elapsed", report.Elapsed).Msg("update complete")
	return report, nil
}

func (u *Updater) run(ctx context.Context, img *firmware.Image, plan []sectionPlan, components []uint32) (protocol.VersionList, error) {
	u.transition(StateModeSet)
	if err := u.dev.Send(ctx, protocol.SetOTAMode{}); err != nil {
		return nil, &StepError{State: StateModeSet, Err: err}
	}

	u.transition(StateStarting)
	if err := u.dev.Send(ctx, protocol.OTAStart{TotalLength: u.Session().TotalLength}); err != nil {
		return nil, &StepError{State: StateStarting, Err: err}
	}

	total := u.Session().TotalPackets
	sent := 0
	for _, p := range plan {
		for i, pkt := range p.packets {
			if err := u.sendPacket(ctx, p.binType, i, len(p.packets), pkt); err != nil {
				return nil, err
			}
			sent++
			if u.config.Progress != nil {
				u.config.Progress(sent, total)
			}
		}
	}

	u.transition(StateVerifying)
	if err := u.dev.Send(ctx, protocol.SetVersion{Version: img.Header.Version}); err != nil {
		return nil, &StepError{State: StateVerifying, Err: err}
	}
	versions, err := link.Execute(ctx, u.dev, protocol.GetVersionList{})
	if err != nil {
		return nil, &StepError{State: StateVerifying, Err: err}
	}
	if missing := missingComponents(versions, components); len(missing) > 0 {
		return nil, &StepError{State: StateVerifying, Err: &VerificationError{Missing: missing}}
	}

	u.transition(StateRebooting)
	if err := u.dev.Send(ctx, protocol.Reboot{}); err != nil {
		u.log.Warn().Err(err).Msg("reboot failed")
	}
	u.transition(StateIdle)
	return versions, nil
}

// sendPacket sends one data packet and waits for its ack, retrying
// recoverable failures.
func (u *Updater) sendPacket(ctx context.Context, binType byte, index, total int, packet []byte) error {
	cmd := protocol.SendOTAData{Packet: packet, Index: index, Total: total}
	attempts := u.config.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		u.update(func(s *Session) { s.PacketIndex = index })

		ack, err := link.Execute(ctx, u.dev, cmd)
		if err == nil && ack.Index != uint32(index) {
			err = fmt.Errorf("%w: sent %d, device acked %d", protocol.ErrAckMismatch, index, ack.Index)
		}
		if err == nil {
			u.update(func(s *Session) {
				s.LastAckedIndex = index
				s.DeviceStatus = ack.Status
				s.SentPackets++
			})
			if u.Session().State == StateStarting {
				u.transition(StateTransferring)
			}
			return nil
		}

		var devErr *protocol.DeviceError
		if errors.As(err, &devErr) {
			u.update(func(s *Session) { s.DeviceStatus = devErr.Status })
		}
		if !retryable(err) {
			return &StepError{State: u.Session().State, Err: err}
		}

		lastErr = err
		u.log.Warn().
			Err(err).
			Uint8("bin", binType).
			Int("index", index).
			Int("attempt", attempt).
			Msg("packet failed")
	}

	return &ChunkError{BinType: binType, Index: index, Attempts: attempts, Err: lastErr}
}

// retryable reports whether a packet failure may be resent. Transport loss
// and cancellation are never retried.
func retryable(err error) bool {
	if protocol.IsTransportError(err) {
		return false
	}
	return protocol.IsDeviceError(err) ||
		errors.Is(err, protocol.ErrFrameTooShort) ||
		errors.Is(err, protocol.ErrAckMismatch) ||
		errors.Is(err, protocol.ErrResponseTimeout)
}

// abort moves to Aborted and tells the device, best effort.
func (u *Updater) abort(log zerolog.Logger, reason error) {
	u.transition(StateAborted)
	log.Error().Err(reason).Msg("update aborted")

	ctx, cancel := context.WithTimeout(context.Background(), u.config.AbortTimeout)
	defer cancel()
	if err := u.dev.Send(ctx, protocol.OTAFailed{}); err != nil {
		log.Warn().Err(err).Msg("failed to notify device of aborted update")
	}
}

func (u *Updater) update(fn func(s *Session)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.session != nil {
		fn(u.session)
	}
}

func (u *Updater) transition(to State) {
	u.mu.Lock()
	from := u.session.State
	u.session.State = to
	u.mu.Unlock()

	u.log.Debug().Stringer("from", from).Stringer("to", to).Msg("state")
	if u.config.OnState != nil {
		u.config.OnState(from, to)
	}
}

// cause replaces a cancellation error with the reason the context was
// cancelled, so Cancel surfaces as ErrCancelled.
func cause(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	c := context.Cause(ctx)
	if errors.Is(err, c) {
		return err
	}
	if errors.Is(c, ErrCancelled) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return err
}

func missingComponents(versions protocol.VersionList, components []uint32) []uint32 {
	var missing []uint32
	for _, c := range components {
		if _, ok := versions[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
