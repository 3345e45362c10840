package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/KonamiWu/lenslink/embedded"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB0
mtu: 247
response_timeout: 750ms
chunk_retries: 3
log_level: DEBUG
output_format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		result   any
		expected any
	}{
		{"port", cfg.Port, "/dev/ttyUSB0"},
		{"baud", cfg.Baud, 115200},
		{"mtu", cfg.MTU, 247},
		{"response_timeout", cfg.ResponseTimeout, 750 * time.Millisecond},
		{"chunk_retries", cfg.ChunkRetries, 3},
		{"output_format", cfg.OutputFormat, "json"},
	}
	for _, tc := range tests {
		if tc.result != tc.expected {
			t.Errorf("Load().%s = %v, want %v", tc.name, tc.result, tc.expected)
		}
	}

	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.DebugLevel {
		t.Errorf("Level() = %v, %v, want debug", lvl, err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"bad yaml", "mtu: [", "failed to parse"},
		{"small mtu", "mtu: 10", "mtu"},
		{"negative retries", "chunk_retries: -1", "chunk_retries"},
		{"bad level", "log_level: loud", "log_level"},
		{"bad format", "output_format: xml", "output_format"},
		{"bad timeout", "response_timeout: 0s", "response_timeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.errPart) {
				t.Errorf("Load() error = %v, want containing %q", err, tc.errPart)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	if result := DefaultPath(); !strings.HasSuffix(result, filepath.Join(".lenslink", "config.yaml")) {
		t.Errorf("DefaultPath() = %q, want suffix .lenslink/config.yaml", result)
	}
}

func TestLoad_Template(t *testing.T) {
	cfg, err := Load(writeConfig(t, string(embedded.ConfigTemplate())))
	if err != nil {
		t.Fatalf("Load(template) error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(template) = %+v, want defaults %+v", cfg, Default())
	}
}
