package device

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultBatteryWait is how long a battery read waits for the level event.
const DefaultBatteryWait = 2 * time.Second

// DefaultLanguage is the preferred language before the agent sets one.
const DefaultLanguage = "en-US"

// Languages are the language codes the glasses can display.
var Languages = []string{"en-US", "es-ES", "fr-FR", "zh-TW", "ja-JP"}

// Config holds controller settings.
type Config struct {
	BatteryWait time.Duration
	Language    string
	Navigator   Navigator
	Logger      zerolog.Logger
}

func defaultConfig() Config {
	return Config{
		BatteryWait: DefaultBatteryWait,
		Language:    DefaultLanguage,
		Logger:      zerolog.Nop(),
	}
}

// Option configures a Controller.
type Option func(*Config)

// WithBatteryWait sets how long a battery read waits for the device to report.
func WithBatteryWait(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BatteryWait = d
		}
	}
}

// WithLanguage sets the initial language preference.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		if lang != "" {
			c.Language = lang
		}
	}
}

// WithNavigator enables the navigation tool.
func WithNavigator(n Navigator) Option {
	return func(c *Config) {
		c.Navigator = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
