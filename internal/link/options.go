package link

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/internal/protocol"
)

// DefaultResponseTimeout is how long a request waits for its response.
const DefaultResponseTimeout = 5 * time.Second

// EventHandler receives unsolicited device messages.
type EventHandler func(ev protocol.Event)

// Config holds link settings.
type Config struct {
	ResponseTimeout time.Duration
	QueueSize       int
	Logger          zerolog.Logger
	OnEvent         EventHandler
}

func defaultConfig() Config {
	return Config{
		ResponseTimeout: DefaultResponseTimeout,
		QueueSize:       16,
		Logger:          zerolog.Nop(),
	}
}

// Option configures a Link.
type Option func(*Config)

// WithResponseTimeout sets how long a request waits for its response.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ResponseTimeout = d
		}
	}
}

// WithQueueSize sets how many requests may wait behind the in-flight one.
func WithQueueSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithEventHandler sets the handler for unsolicited device messages.
// The handler runs on the link goroutine and must not block.
func WithEventHandler(h EventHandler) Option {
	return func(c *Config) {
		c.OnEvent = h
	}
}
