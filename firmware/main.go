//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/rgbscan/pkg/adc"
	"github.com/itohio/rgbscan/pkg/sampler"
)

// console carries both the commands and the scan results.
var console = machine.Serial

var _ adc.Converter = (*scanADC)(nil)

// scanADC runs a single-cycle scan over the colour sensor pins.
// machine.ADC reads block, so the scan completes inside Start.
type scanADC struct {
	pins    [3]machine.ADC
	mask    adc.ChannelMask
	powered bool
	done    bool
	results [3]int32
}

func (a *scanADC) Open(mode adc.Mode, input adc.Input, mask adc.ChannelMask) error {
	a.mask = mask
	return nil
}

func (a *scanADC) PowerOn() {
	if a.powered {
		return
	}
	machine.InitADC()
	cfg := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i := range a.pins {
		a.pins[i].Configure(cfg)
	}
	a.powered = true
}

func (a *scanADC) ClearDone() { a.done = false }

func (a *scanADC) Start() {
	if !a.powered {
		return
	}
	for i := range a.pins {
		if !a.mask.Has(i) {
			a.results[i] = 0
			continue
		}
		// Get returns a left aligned 16-bit value
		a.results[i] = int32(a.pins[i].Get() >> (16 - ADC_RESOLUTION))
	}
	a.done = true
}

func (a *scanADC) Done() bool { return a.done }

func (a *scanADC) Result(ch int) int32 {
	if ch < 0 || ch >= len(a.results) {
		return 0
	}
	return a.results[ch]
}

func (a *scanADC) Close() error {
	a.done = false
	return nil
}

// serialReader blocks until the console has a byte.
type serialReader struct{ s machine.Serialer }

func (r serialReader) ReadByte() (byte, error) {
	for r.s.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	return r.s.ReadByte()
}

func main() {
	console.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LED.High()

	conv := &scanADC{
		pins: [3]machine.ADC{
			{Pin: PIN_ADC_R},
			{Pin: PIN_ADC_G},
			{Pin: PIN_ADC_B},
		},
	}

	sampler.Banner(console)

	loop := sampler.New(conv, serialReader{console}, console)
	if err := loop.Run(context.Background()); err != nil {
		console.Write([]byte("\nsampler stopped: " + err.Error() + "\n"))
	}

	conv.Close()
	PIN_LED.Low()
	console.Write([]byte("\nExit ADC sample code\n"))

	for {
		time.Sleep(time.Second)
	}
}
