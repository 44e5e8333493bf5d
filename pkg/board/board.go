// Package board provides board support for the sampler: clock and pin
// bring-up and the blocking console channel.
package board

import (
	"io"
	"os"
)

const (
	// PLLClock is the core clock rate the board runs at after Init.
	PLLClock = 50000000
	// DefaultBaudRate is the console line rate.
	DefaultBaudRate = 115200
)

// Board is the board support collaborator.
type Board interface {
	// Init brings up clocks, pin multiplexing and the console.
	Init() error
	// CoreClock returns the core clock rate in Hz.
	CoreClock() uint32
	// Console returns the blocking serial console. Valid after Init.
	Console() io.ReadWriter
	Close() error
}

// Ensure Serial implements Board.
var _ Board = (*Serial)(nil)

// Ensure Stdio implements Board.
var _ Board = (*Stdio)(nil)

// Stdio is a board whose console is the process standard input and output.
type Stdio struct {
	console io.ReadWriter
	clock   uint32
}

type stdio struct {
	io.Reader
	io.Writer
}

// NewStdio creates a board with the console on os.Stdin and os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{}
}

// Init implements Board.
func (b *Stdio) Init() error {
	b.console = stdio{Reader: os.Stdin, Writer: os.Stdout}
	b.clock = PLLClock
	return nil
}

// CoreClock implements Board.
func (b *Stdio) CoreClock() uint32 {
	return b.clock
}

// Console implements Board.
func (b *Stdio) Console() io.ReadWriter {
	return b.console
}

// Close implements Board. A pending stdin read is not interrupted.
func (b *Stdio) Close() error {
	return nil
}
