package ota

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/firmware"
)

// ProgressCallback is called after each acknowledged packet.
type ProgressCallback func(current, total int)

// StateCallback is called on every state transition.
type StateCallback func(from, to State)

// Config holds updater settings.
type Config struct {
	// Retries is how many times a failed packet is resent before aborting.
	Retries int

	// MTU sizes the data packets.
	MTU int

	// Force sends every section regardless of installed versions.
	Force bool

	// AbortTimeout bounds the best-effort OTAFailed notice.
	AbortTimeout time.Duration

	Logger   zerolog.Logger
	Progress ProgressCallback
	OnState  StateCallback
}

func defaultConfig() Config {
	return Config{
		Retries:      1,
		MTU:          firmware.DefaultMTU,
		AbortTimeout: 2 * time.Second,
		Logger:       zerolog.Nop(),
	}
}

// Option configures an Updater.
type Option func(*Config)

// WithRetries sets the per-packet retry count.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Retries = n
		}
	}
}

// WithMTU sets the link MTU used to size packets.
func WithMTU(mtu int) Option {
	return func(c *Config) {
		if mtu > 0 {
			c.MTU = mtu
		}
	}
}

// WithForce transfers every section even when the device is up to date.
func WithForce(force bool) Option {
	return func(c *Config) {
		c.Force = force
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithProgressCallback sets the progress callback.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.Progress = cb
	}
}

// WithStateCallback sets the state transition callback.
func WithStateCallback(cb StateCallback) Option {
	return func(c *Config) {
		c.OnState = cb
	}
}
