package client

import (
	"context"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/itohio/rgbscan/pkg/sampler"
)

const (
	// DefaultBaudRate is the sampler console line rate.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the samples channel buffer.
	DefaultBufferSize = 100
	// StopCommand is sent to terminate the remote loop. Any byte other than
	// sampler.CommandScan would do.
	StopCommand = 'q'
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a connection to a board running the sampler loop.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	samples   chan Sample
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a new Serial client with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		samples:  make(chan Sample, bufSize),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}

// Connect opens the serial port and starts decoding samples.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.done = make(chan struct{})
	d.samples = make(chan Sample, d.bufSize)
	d.connected = true

	go func(samples chan<- Sample, done chan<- struct{}) {
		defer close(done)
		readSamples(ctx, port, samples)
	}(d.samples, d.done)

	return nil
}

// Close closes the port and waits for the samples channel to close.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	var err error
	if e := d.conn.ResetInputBuffer(); e != nil {
		err = multierr.Append(err, fmt.Errorf("failed to reset input buffer: %w", e))
	}
	if e := d.conn.Close(); e != nil {
		err = multierr.Append(err, fmt.Errorf("failed to close serial port: %w", e))
	}
	d.conn = nil
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	return err
}

// Samples returns the channel for reading samples.
func (d *Serial) Samples() <-chan Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.samples
}

// Trigger sends the scan command.
func (d *Serial) Trigger() error {
	return d.send(sampler.CommandScan)
}

// Stop sends the stop command. The board stops responding to triggers.
func (d *Serial) Stop() error {
	return d.send(StopCommand)
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) send(cmd byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := d.conn.Write([]byte{cmd}); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	return nil
}
