package sample

import (
	"log"
	"math"
	"time"
)

// NewAveragingConverter creates a converter that emits, for every input sample,
// the mean of the last windowSize samples. This reduces noise in the readings.
func NewAveragingConverter(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1 // No averaging if invalid
	}
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]Sample, 0, windowSize+1)
			for s := range in {
				buffer = append(buffer, s)
				if len(buffer) > windowSize {
					buffer = buffer[1:] // Remove oldest
				}

				select {
				case out <- averageSamples(buffer):
				case <-time.After(time.Second):
					log.Printf("Averaging converter output channel full")
				}
			}
		}()

		return out
	}
}

// averageSamples averages a slice of Samples.
// Uses the most recent sample's timestamp; raw codes are rounded to nearest.
func averageSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumR, sumG, sumB float64
	var rawR, rawG, rawB int64
	last := samples[len(samples)-1]

	for _, s := range samples {
		sumR += s.R
		sumG += s.G
		sumB += s.B
		rawR += int64(s.Raw.R)
		rawG += int64(s.Raw.G)
		rawB += int64(s.Raw.B)
	}

	n := float64(len(samples))
	avg := Sample{
		Timestamp: last.Timestamp,
		R:         sumR / n,
		G:         sumG / n,
		B:         sumB / n,
	}
	avg.Raw.R = int32(math.Round(float64(rawR) / n))
	avg.Raw.G = int32(math.Round(float64(rawG) / n))
	avg.Raw.B = int32(math.Round(float64(rawB) / n))
	return avg
}
