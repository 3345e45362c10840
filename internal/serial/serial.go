// Package serial carries glasses messages over a UART link, such as the
// debug port of a dev-kit board.
package serial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/KonamiWu/lenslink/internal/link"
	"github.com/KonamiWu/lenslink/internal/stream"
)

// DefaultBaudRate is the dev-kit UART speed.
const DefaultBaudRate = 115200

const readTimeout = 100 * time.Millisecond

// Port is a link.Transport over a serial port.
type Port struct {
	port     serial.Port
	portName string
	baudRate int

	split stream.Splitter
	buf   []byte

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// Open opens a serial port with the specified baud rate.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	// Recv polls so it can notice cancellation.
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush input: %w", err)
	}

	return newPort(port, portName, baudRate), nil
}

func newPort(p serial.Port, name string, baud int) *Port {
	return &Port{
		port:     p,
		portName: name,
		baudRate: baud,
		buf:      make([]byte, 1024),
		closed:   make(chan struct{}),
	}
}

// Send writes one frame.
func (p *Port) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.closed:
		return link.ErrClosed
	default:
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	for len(frame) > 0 {
		n, err := p.port.Write(frame)
		if err != nil {
			return fmt.Errorf("write %s: %w", p.portName, err)
		}
		frame = frame[n:]
	}
	return nil
}

// Recv returns the next whole message. It must not be called concurrently.
func (p *Port) Recv(ctx context.Context) ([]byte, error) {
	for {
		if msg, ok := p.split.Next(); ok {
			return msg, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.closed:
			return nil, link.ErrClosed
		default:
		}

		n, err := p.port.Read(p.buf)
		if err != nil {
			select {
			case <-p.closed:
				return nil, link.ErrClosed
			default:
			}
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
				return nil, link.ErrClosed
			}
			return nil, fmt.Errorf("read %s: %w", p.portName, err)
		}
		// n == 0 is a read timeout.
		if n > 0 {
			p.split.Write(p.buf[:n])
		}
	}
}

// Close closes the serial port.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.port.Close()
	})
	return err
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

// PortInfo describes a serial port.
type PortInfo struct {
	Name    string `json:"name" yaml:"name"`
	USB     bool   `json:"usb" yaml:"usb"`
	VID     string `json:"vid,omitempty" yaml:"vid,omitempty"`
	PID     string `json:"pid,omitempty" yaml:"pid,omitempty"`
	Serial  string `json:"serial,omitempty" yaml:"serial,omitempty"`
	Product string `json:"product,omitempty" yaml:"product,omitempty"`
}

// PortList is a table of serial ports.
type PortList []PortInfo

func (l PortList) Header() []string { return []string{"PORT", "USB", "VID:PID", "SERIAL", "PRODUCT"} }

func (l PortList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		id := "-"
		if p.USB {
			id = p.VID + ":" + p.PID
		}
		rows = append(rows, []string{p.Name, fmt.Sprint(p.USB), id, p.Serial, p.Product})
	}
	return rows
}

// ListPortDetails returns the available ports with USB identification.
func ListPortDetails() (PortList, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make(PortList, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	return out, nil
}
