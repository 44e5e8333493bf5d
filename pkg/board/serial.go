package board

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// Serial is a board whose console is a serial port.
type Serial struct {
	port     string
	baudRate int

	mu    sync.Mutex
	conn  serial.Port
	clock uint32
}

// NewSerial creates a serial console board for the given port. A zero
// baud rate uses DefaultBaudRate.
func NewSerial(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &Serial{
		port:     port,
		baudRate: baudRate,
	}
}

// Init opens the serial port 8N1 at the configured rate.
func (b *Serial) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return fmt.Errorf("already initialized")
	}

	mode := &serial.Mode{
		BaudRate: b.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	conn, err := serial.Open(b.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", b.port, err)
	}

	b.conn = conn
	b.clock = PLLClock
	return nil
}

// CoreClock implements Board.
func (b *Serial) CoreClock() uint32 {
	return b.clock
}

// Console implements Board.
func (b *Serial) Console() io.ReadWriter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn
}

// Close closes the serial port.
func (b *Serial) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}

	err := b.conn.Close()
	b.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", b.port, err)
	}
	return nil
}
