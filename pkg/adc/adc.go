// Package adc describes the control surface of a scanning analog converter.
package adc

import "math/bits"

// Mode selects how the converter sequences through enabled channels.
type Mode uint8

const (
	// SingleCycle samples every enabled channel once per start trigger.
	SingleCycle Mode = iota
	// Continuous keeps rescanning enabled channels until stopped.
	Continuous
)

// Input selects the analog input topology.
type Input uint8

const (
	SingleEnded Input = iota
	Differential
)

// ChannelMask is a bitset of enabled analog channels, bit n = channel n.
type ChannelMask uint32

// Channels012 enables channels 0, 1 and 2.
const Channels012 ChannelMask = 0x7

// Has reports whether channel ch is enabled.
func (m ChannelMask) Has(ch int) bool {
	if ch < 0 || ch >= 32 {
		return false
	}
	return m&(1<<uint(ch)) != 0
}

// Count returns the number of enabled channels.
func (m ChannelMask) Count() int {
	return bits.OnesCount32(uint32(m))
}

// Converter is an exclusively owned handle to an analog converter peripheral.
// It is not safe for concurrent use.
type Converter interface {
	// Open configures mode, input topology and enabled channels.
	Open(mode Mode, input Input, mask ChannelMask) error
	PowerOn()
	// ClearDone clears a pending completion flag.
	ClearDone()
	// Start triggers a conversion.
	Start()
	// Done is a non-blocking query of the completion flag.
	Done() bool
	// Result returns the raw conversion data of channel ch.
	Result(ch int) int32
	Close() error
}

// Ensure Sim implements Converter.
var _ Converter = (*Sim)(nil)
