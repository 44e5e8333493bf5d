//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Colour sensor channels, scanned in order R, G, B
	PIN_ADC_R = machine.A0
	PIN_ADC_G = machine.A1
	PIN_ADC_B = machine.A2

	// Sensor illumination, driven high while the sampler runs
	PIN_LED = machine.D3

	// Serial configuration
	// Worst case token "{-2147483648, -2147483648, -2147483648}," is 41 bytes.
	// 115200 baud 8N1 moves 11,520 bytes/sec, far more than a human pressing '1'.
	UART_BAUD_RATE = 115200
)
