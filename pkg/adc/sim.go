package adc

import (
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"
)

// SimConfig contains simulated converter configuration.
type SimConfig struct {
	Values         []int32       `yaml:"values"`          // Base reading per channel (R, G, B)
	Noise          float32       `yaml:"noise"`           // Noise amplitude in LSB
	Resolution     int           `yaml:"resolution"`      // Bits
	ConversionTime time.Duration `yaml:"conversion_time"` // Time from start until the flag asserts
	Stuck          bool          `yaml:"stuck"`           // Never assert the completion flag
}

// DefaultSimConfig returns a 12-bit simulation of a colour sensor.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Values:         []int32{120, 340, 4095},
		Resolution:     12,
		ConversionTime: 50 * time.Microsecond,
	}
}

// Sim simulates a scanning converter for testing and development.
type Sim struct {
	cfg *SimConfig

	mu      sync.Mutex
	opened  bool
	powered bool
	mask    ChannelMask

	// Conversion state
	running   bool
	done      bool
	startedAt time.Time
	epoch     time.Time

	values  []int32 // Current analog level per channel
	results []int32 // Data latched at completion
}

// NewSim creates a simulated converter. A nil cfg uses the default simulation.
func NewSim(cfg *SimConfig) *Sim {
	if cfg == nil {
		def := DefaultSimConfig()
		cfg = &def
	}

	values := make([]int32, len(cfg.Values))
	copy(values, cfg.Values)

	return &Sim{
		cfg:     cfg,
		values:  values,
		results: make([]int32, len(values)),
		epoch:   time.Now(),
	}
}

// Open configures the simulated converter. Only single-cycle, single-ended
// scans are supported.
func (s *Sim) Open(mode Mode, input Input, mask ChannelMask) error {
	if mode != SingleCycle {
		return fmt.Errorf("unsupported mode %d", mode)
	}
	if input != SingleEnded {
		return fmt.Errorf("unsupported input %d", input)
	}
	if mask == 0 {
		return fmt.Errorf("empty channel mask")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.opened = true
	s.mask = mask
	return nil
}

// PowerOn powers the simulated converter.
func (s *Sim) PowerOn() {
	s.mu.Lock()
	s.powered = true
	s.mu.Unlock()
}

// ClearDone clears the completion flag.
func (s *Sim) ClearDone() {
	s.mu.Lock()
	s.done = false
	s.mu.Unlock()
}

// Start begins a conversion. A converter that was not opened and powered
// never completes.
func (s *Sim) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened || !s.powered {
		return
	}
	s.running = true
	s.startedAt = time.Now()
}

// Done reports the completion flag. Results are latched when the flag asserts.
func (s *Sim) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cfg.Stuck {
		return s.done
	}

	now := time.Now()
	if now.Sub(s.startedAt) < s.cfg.ConversionTime {
		return false
	}

	for ch := range s.values {
		if s.mask.Has(ch) {
			s.results[ch] = s.sample(ch, now)
		} else {
			s.results[ch] = 0
		}
	}
	s.running = false
	s.done = true
	return true
}

// Result returns the latched data of channel ch.
func (s *Sim) Result(ch int) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch < 0 || ch >= len(s.results) || !s.mask.Has(ch) {
		return 0
	}
	return s.results[ch]
}

// Close powers down the converter.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.opened = false
	s.powered = false
	s.running = false
	s.done = false
	return nil
}

// SetValues overrides the analog level of the first len(values) channels.
func (s *Sim) SetValues(values ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(values) > len(s.values) {
		s.values = append(s.values, make([]int32, len(values)-len(s.values))...)
		s.results = append(s.results, make([]int32, len(values)-len(s.results))...)
	}
	copy(s.values, values)
}

// sample returns the digitized level of channel ch at time now.
// Without noise the configured level is returned as is.
func (s *Sim) sample(ch int, now time.Time) int32 {
	v := s.values[ch]
	if s.cfg.Noise == 0 {
		return v
	}

	// Each channel gets its own phase so the triples are not correlated
	t := float32(now.Sub(s.epoch).Seconds())
	phase := float32(ch) * 2.1
	noise := (math32.Sin(t*37+phase) + math32.Cos(t*53+phase)) * s.cfg.Noise * 0.5

	noisy := int32(math32.Round(float32(v) + noise))
	maxValue := int32(1)<<uint(s.cfg.Resolution) - 1
	if noisy < 0 {
		noisy = 0
	} else if noisy > maxValue {
		noisy = maxValue
	}
	return noisy
}
