package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/itohio/rgbscan/pkg/adc"
	"github.com/itohio/rgbscan/pkg/config"
	"github.com/itohio/rgbscan/pkg/sampler"
)

// Loopback runs a sampler loop against a simulated converter in-process and
// decodes its console output the same way Serial does.
type Loopback struct {
	cfg *config.Config
	sim *adc.Sim

	samples   chan Sample
	mu        sync.RWMutex
	cancel    context.CancelFunc
	cmdW      *io.PipeWriter
	outR      *io.PipeReader
	loopDone  chan struct{}
	readDone  chan struct{}
	loopErr   error
	connected bool
}

// NewLoopback creates a loopback device. A nil cfg uses config.Default().
func NewLoopback(cfg *config.Config) *Loopback {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Loopback{
		cfg:     cfg,
		sim:     adc.NewSim(&cfg.Sim),
		samples: make(chan Sample, bufferSize(cfg)),
	}
}

func bufferSize(cfg *config.Config) int {
	if cfg.Client.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return cfg.Client.BufferSize
}

// Sim returns the simulated converter driven by the loop.
func (m *Loopback) Sim() *adc.Sim {
	return m.sim
}

// Connect starts the sampler loop.
func (m *Loopback) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	cmdR, cmdW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	m.cmdW = cmdW
	m.outR = outR
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	m.readDone = make(chan struct{})
	m.samples = make(chan Sample, bufferSize(m.cfg))
	m.loopErr = nil
	m.connected = true

	loop := sampler.New(m.sim, bufio.NewReader(cmdR), outW, sampler.WithConfig(m.cfg.Sampler))

	go func() {
		defer close(m.loopDone)
		defer outW.Close()
		// Commands sent after the loop exits fail instead of blocking
		defer cmdR.Close()

		if err := sampler.Banner(outW); err != nil {
			return
		}

		err := loop.Run(ctx)
		if err != nil && !errors.Is(err, sampler.ErrInputClosed) && ctx.Err() == nil {
			log.Printf("Sampler loop stopped: %v", err)
			m.mu.Lock()
			m.loopErr = err
			m.mu.Unlock()
		}
	}()

	go func(samples chan<- Sample, done chan<- struct{}) {
		defer close(done)
		readSamples(ctx, outR, samples)
	}(m.samples, m.readDone)

	return nil
}

// Close stops the loop and waits for the samples channel to close.
func (m *Loopback) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}

	m.cancel()
	// Pipe closes never fail
	m.cmdW.Close()
	m.outR.Close()
	m.connected = false
	loopDone, readDone := m.loopDone, m.readDone
	m.mu.Unlock()

	<-loopDone
	<-readDone
	return nil
}

// Samples returns the channel for reading samples.
func (m *Loopback) Samples() <-chan Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// Trigger sends the scan command to the loop.
func (m *Loopback) Trigger() error {
	return m.send(sampler.CommandScan)
}

// Stop sends the stop command; the loop exits and the samples channel closes.
func (m *Loopback) Stop() error {
	return m.send(StopCommand)
}

// IsConnected returns whether the device is currently connected.
func (m *Loopback) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Err returns the error that terminated the loop, if any.
func (m *Loopback) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loopErr
}

func (m *Loopback) send(cmd byte) error {
	m.mu.RLock()
	if !m.connected {
		m.mu.RUnlock()
		return fmt.Errorf("not connected")
	}
	w := m.cmdW
	m.mu.RUnlock()

	if _, err := w.Write([]byte{cmd}); err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	return nil
}
