// Package embedded holds files compiled into the lenslink binary.
package embedded

import (
	_ "embed"
)

//go:embed config.yaml
var configTemplate []byte

// ConfigTemplate returns the commented default configuration written by
// "lenslink config init".
func ConfigTemplate() []byte {
	out := make([]byte, len(configTemplate))
	copy(out, configTemplate)
	return out
}
