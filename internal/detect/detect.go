// Package detect finds glasses on the host's serial ports.
package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/protocol"
	"github.com/KonamiWu/lenslink/internal/serial"
)

// ProbeTimeout bounds each version query while probing.
const ProbeTimeout = 500 * time.Millisecond

const probeAttempts = 3

// Result represents detected glasses.
type Result struct {
	Port     string               `json:"port" yaml:"port"`
	Versions protocol.VersionList `json:"versions" yaml:"versions"`
}

// Results is a table of detected glasses.
type Results []Result

func (r Results) Header() []string { return []string{"PORT", "COMPONENTS"} }

func (r Results) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, res := range r {
		rows = append(rows, []string{res.Port, fmt.Sprint(len(res.Versions))})
	}
	return rows
}

var (
	listPorts = serial.ListPorts
	openPort  = func(name string, baud int) (link.Transport, error) {
		return serial.Open(name, baud)
	}
)

// DetectDevice tries to detect glasses on available ports.
// Returns the first port that answers, or an error.
func DetectDevice(ctx context.Context, baudRate int) (*Result, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(ctx, portName, baudRate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("no glasses found (last error: %w)", lastErr)
}

// DetectOnPort checks for glasses on a specific port.
func DetectOnPort(ctx context.Context, portName string, baudRate int) (*Result, error) {
	return tryPort(ctx, portName, baudRate)
}

// ListDevices scans all ports and returns every port with glasses attached.
func ListDevices(ctx context.Context, baudRate int) (Results, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	var results Results
	for _, portName := range ports {
		result, err := tryPort(ctx, portName, baudRate)
		if err == nil {
			results = append(results, *result)
		}
	}

	return results, ctx.Err()
}

func tryPort(ctx context.Context, portName string, baudRate int) (*Result, error) {
	t, err := openPort(portName, baudRate)
	if err != nil {
		return nil, err
	}

	versions, err := Probe(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", portName, err)
	}
	return &Result{Port: portName, Versions: versions}, nil
}

// Probe asks the device behind t for its version list, retrying on
// timeouts. It closes t before returning.
func Probe(ctx context.Context, t link.Transport) (protocol.VersionList, error) {
	l := link.New(t, link.WithResponseTimeout(ProbeTimeout))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	defer func() {
		l.Close()
		<-done
	}()

	var lastErr error
	for attempt := 0; attempt < probeAttempts; attempt++ {
		versions, err := link.Execute(ctx, l, protocol.GetVersionList{})
		if err == nil {
			return versions, nil
		}
		lastErr = err
		if !errors.Is(err, protocol.ErrResponseTimeout) && !errors.Is(err, protocol.ErrFrameTooShort) {
			break
		}
	}
	return nil, fmt.Errorf("no answer to version query: %w", lastErr)
}
