package sample

import (
	"log"
	"time"

	"github.com/itohio/rgbscan/pkg/client"
	"github.com/itohio/rgbscan/pkg/sampler"
)

// Sample is a scan result with channel levels relative to full scale.
type Sample struct {
	Timestamp time.Time
	Raw       sampler.Result
	R, G, B   float64 // 0..1 of full scale
}

// Converter is a function type that converts client.Sample channel to Sample channel.
type Converter func(in <-chan client.Sample) <-chan Sample

// NewConverter creates a converter function that normalizes raw triples of the
// given resolution in bits.
func NewConverter(resolution int, bufSize int) Converter {
	if resolution <= 0 {
		resolution = 12
	}
	if bufSize <= 0 {
		bufSize = 100
	}
	fullScale := fullScale(resolution)

	return func(in <-chan client.Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				select {
				case out <- convertSample(raw, fullScale):
				case <-time.After(time.Second):
					log.Printf("Converter output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// fullScale returns the largest code of a converter with the given resolution.
func fullScale(resolution int) float64 {
	return float64(int64(1)<<uint(resolution) - 1)
}

// convertSample normalizes a raw triple.
func convertSample(raw client.Sample, fullScale float64) Sample {
	return Sample{
		Timestamp: raw.Timestamp,
		Raw:       raw.Result(),
		R:         float64(raw.R) / fullScale,
		G:         float64(raw.G) / fullScale,
		B:         float64(raw.B) / fullScale,
	}
}
