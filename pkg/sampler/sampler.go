// Package sampler turns single-character serial commands into triggered
// analog scans and prints their results.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/itohio/rgbscan/pkg/adc"
)

const (
	// CommandScan triggers one scan cycle. Any other byte stops the loop.
	CommandScan = '1'

	// DefaultTimeout bounds the wait for the completion flag.
	DefaultTimeout = 100 * time.Millisecond
)

var (
	// ErrInputClosed is returned when the command stream ends.
	ErrInputClosed = errors.New("input channel closed")
	// ErrConversionTimeout is returned when the completion flag is not observed in time.
	ErrConversionTimeout = errors.New("conversion timeout")
)

// State of the sampler loop.
type State uint8

const (
	AwaitingCommand State = iota
	Scanning
	Stopped
)

func (s State) String() string {
	switch s {
	case AwaitingCommand:
		return "AwaitingCommand"
	case Scanning:
		return "Scanning"
	case Stopped:
		return "Stopped"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Result is one scan over channels 0, 1 and 2.
type Result struct {
	R, G, B int32
}

// AppendText appends the console form "{R, G, B}," to b.
func (r Result) AppendText(b []byte) ([]byte, error) {
	b = append(b, '{')
	b = strconv.AppendInt(b, int64(r.R), 10)
	b = append(b, ", "...)
	b = strconv.AppendInt(b, int64(r.G), 10)
	b = append(b, ", "...)
	b = strconv.AppendInt(b, int64(r.B), 10)
	b = append(b, "},"...)
	return b, nil
}

func (r Result) String() string {
	b, _ := r.AppendText(make([]byte, 0, 40))
	return string(b)
}

// Config contains the scan loop parameters.
type Config struct {
	Timeout      time.Duration `yaml:"timeout"`       // Max wait for the completion flag
	PollInterval time.Duration `yaml:"poll_interval"` // 0 = spin
	HoistSetup   bool          `yaml:"hoist_setup"`   // Configure the converter once instead of every scan
}

// Option configures a Loop.
type Option func(*Loop)

// WithTimeout sets how long a scan waits for the completion flag.
func WithTimeout(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithPollInterval sets the delay between completion flag polls. Zero spins.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d >= 0 {
			l.pollInterval = d
		}
	}
}

// WithHoistedSetup configures and powers the converter once, on the first
// scan, instead of before every scan.
func WithHoistedSetup(hoist bool) Option {
	return func(l *Loop) { l.hoist = hoist }
}

// WithConfig applies cfg. Zero durations keep the defaults.
func WithConfig(cfg Config) Option {
	return func(l *Loop) {
		WithTimeout(cfg.Timeout)(l)
		WithPollInterval(cfg.PollInterval)(l)
		WithHoistedSetup(cfg.HoistSetup)(l)
	}
}

// Loop reads commands from in and writes scan results to out.
// The loop owns conv exclusively while it runs. It is not safe for concurrent use.
type Loop struct {
	conv adc.Converter
	in   io.ByteReader
	out  io.Writer

	timeout      time.Duration
	pollInterval time.Duration
	hoist        bool

	configured bool
	state      State
	buf        []byte
}

// New creates a sampler loop.
func New(conv adc.Converter, in io.ByteReader, out io.Writer, opts ...Option) *Loop {
	l := &Loop{
		conv:    conv,
		in:      in,
		out:     out,
		timeout: DefaultTimeout,
		state:   AwaitingCommand,
		buf:     make([]byte, 0, 40),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current loop state.
func (l *Loop) State() State {
	return l.state
}

// Run processes commands until a byte other than CommandScan is read, in
// which case it returns nil. The converter is not closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			l.state = Stopped
			return err
		}

		l.state = AwaitingCommand
		c, err := l.in.ReadByte()
		if err != nil {
			l.state = Stopped
			if errors.Is(err, io.EOF) {
				return ErrInputClosed
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		if c != CommandScan {
			l.state = Stopped
			return nil
		}

		l.state = Scanning
		res, err := l.Scan(ctx)
		if err != nil {
			l.state = Stopped
			return err
		}

		l.buf, _ = res.AppendText(l.buf[:0])
		if _, err := l.out.Write(l.buf); err != nil {
			l.state = Stopped
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
}

// Scan runs one conversion cycle: configure, power on, clear the completion
// flag, start, wait for completion and read channels 0, 1 and 2.
func (l *Loop) Scan(ctx context.Context) (Result, error) {
	if !l.hoist || !l.configured {
		if err := l.conv.Open(adc.SingleCycle, adc.SingleEnded, adc.Channels012); err != nil {
			return Result{}, fmt.Errorf("failed to open converter: %w", err)
		}
		l.conv.PowerOn()
		l.configured = true
	}

	l.conv.ClearDone()
	l.conv.Start()

	if err := l.wait(ctx); err != nil {
		return Result{}, err
	}

	return Result{
		R: l.conv.Result(0),
		G: l.conv.Result(1),
		B: l.conv.Result(2),
	}, nil
}

// wait polls the completion flag until it asserts, the timeout elapses or ctx is done.
func (l *Loop) wait(ctx context.Context) error {
	deadline := time.Now().Add(l.timeout)
	for !l.conv.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w after %v", ErrConversionTimeout, l.timeout)
		}
		if l.pollInterval > 0 {
			time.Sleep(l.pollInterval)
		} else {
			runtime.Gosched()
		}
	}
	return nil
}
