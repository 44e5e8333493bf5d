package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/rgbscan/pkg/adc"
)

// recorder is a converter that logs every call and completes after doneAfter polls.
type recorder struct {
	calls     []string
	values    [3]int32
	doneAfter int // -1 = never
	polls     int
	openErr   error
}

var _ adc.Converter = (*recorder)(nil)

func newRecorder(r, g, b int32) *recorder {
	return &recorder{values: [3]int32{r, g, b}}
}

func (c *recorder) Open(mode adc.Mode, input adc.Input, mask adc.ChannelMask) error {
	c.calls = append(c.calls, fmt.Sprintf("open(%d,%d,%#x)", mode, input, mask))
	return c.openErr
}
func (c *recorder) PowerOn()   { c.calls = append(c.calls, "power") }
func (c *recorder) ClearDone() { c.calls = append(c.calls, "clear") }
func (c *recorder) Start() {
	c.calls = append(c.calls, "start")
	c.polls = 0
}
func (c *recorder) Done() bool {
	if c.doneAfter < 0 {
		return false
	}
	c.polls++
	if c.polls > c.doneAfter {
		c.calls = append(c.calls, "done")
		return true
	}
	return false
}
func (c *recorder) Result(ch int) int32 {
	c.calls = append(c.calls, fmt.Sprintf("result(%d)", ch))
	return c.values[ch]
}
func (c *recorder) Close() error {
	c.calls = append(c.calls, "close")
	return nil
}

func (c *recorder) count(call string) int {
	n := 0
	for _, got := range c.calls {
		if got == call {
			n++
		}
	}
	return n
}

var scanCalls = []string{"open(0,0,0x7)", "power", "clear", "start", "done", "result(0)", "result(1)", "result(2)"}

func TestResult_String(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{"typical", Result{120, 340, 4095}, "{120, 340, 4095},"},
		{"zeros", Result{}, "{0, 0, 0},"},
		{"negative", Result{-1, -2048, 7}, "{-1, -2048, 7},"},
		{"extremes", Result{-2147483648, 2147483647, 0}, "{-2147483648, 2147483647, 0},"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.String())
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "AwaitingCommand", AwaitingCommand.String())
	assert.Equal(t, "Scanning", Scanning.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestNew_Defaults(t *testing.T) {
	l := New(newRecorder(0, 0, 0), strings.NewReader(""), io.Discard)
	assert.Equal(t, DefaultTimeout, l.timeout)
	assert.Equal(t, time.Duration(0), l.pollInterval)
	assert.False(t, l.hoist)
	assert.Equal(t, AwaitingCommand, l.State())
}

func TestNew_WithConfig(t *testing.T) {
	l := New(newRecorder(0, 0, 0), strings.NewReader(""), io.Discard, WithConfig(Config{
		Timeout:      time.Second,
		PollInterval: time.Millisecond,
		HoistSetup:   true,
	}))
	assert.Equal(t, time.Second, l.timeout)
	assert.Equal(t, time.Millisecond, l.pollInterval)
	assert.True(t, l.hoist)

	// Zero timeout keeps the default
	l = New(newRecorder(0, 0, 0), strings.NewReader(""), io.Discard, WithTimeout(0))
	assert.Equal(t, DefaultTimeout, l.timeout)
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOut   string
		wantScans int
	}{
		{"single scan", "1q", "{120, 340, 4095},", 1},
		{"three scans", "111x", "{120, 340, 4095},{120, 340, 4095},{120, 340, 4095},", 3},
		{"no scan", "x", "", 0},
		{"newline stops", "1\n1", "{120, 340, 4095},", 1},
		{"zero byte stops", "\x001", "", 0},
		{"digit other than one stops", "2", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := newRecorder(120, 340, 4095)
			in := strings.NewReader(tt.input)
			var out bytes.Buffer

			l := New(conv, in, &out)
			err := l.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantOut, out.String())
			assert.Equal(t, tt.wantScans, conv.count("start"))
			assert.Equal(t, Stopped, l.State())
		})
	}
}

func TestRun_CallOrder(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	conv.doneAfter = 3

	l := New(conv, strings.NewReader("1q"), io.Discard)
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, scanCalls, conv.calls)
	assert.Equal(t, 4, conv.polls, "flag must be polled until it asserts")
}

func TestRun_ReconfiguresEveryScan(t *testing.T) {
	conv := newRecorder(1, 2, 3)

	l := New(conv, strings.NewReader("11q"), io.Discard)
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, append(append([]string{}, scanCalls...), scanCalls...), conv.calls)
}

func TestRun_HoistedSetup(t *testing.T) {
	conv := newRecorder(1, 2, 3)

	l := New(conv, strings.NewReader("111q"), io.Discard, WithHoistedSetup(true))
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, 1, conv.count("open(0,0,0x7)"))
	assert.Equal(t, 1, conv.count("power"))
	assert.Equal(t, 3, conv.count("clear"))
	assert.Equal(t, 3, conv.count("start"))
	assert.Equal(t, scanCalls, conv.calls[:len(scanCalls)])
}

func TestRun_NoConversionWithoutCommand(t *testing.T) {
	conv := newRecorder(1, 2, 3)

	l := New(conv, strings.NewReader("q111"), io.Discard)
	require.NoError(t, l.Run(context.Background()))

	assert.Empty(t, conv.calls)
}

func TestRun_ChannelOrder(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b int32
		want    string
	}{
		{"ascending", 1, 2, 3, "{1, 2, 3},"},
		{"descending", 3, 2, 1, "{3, 2, 1},"},
		{"signed", -7, 0, 7, "{-7, 0, 7},"},
		{"full scale", 4095, 0, 4095, "{4095, 0, 4095},"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			l := New(newRecorder(tt.r, tt.g, tt.b), strings.NewReader("1q"), &out)
			require.NoError(t, l.Run(context.Background()))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRun_InputClosed(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	var out bytes.Buffer

	l := New(conv, strings.NewReader("11"), &out)
	err := l.Run(context.Background())

	assert.ErrorIs(t, err, ErrInputClosed)
	assert.Equal(t, "{1, 2, 3},{1, 2, 3},", out.String())
	assert.Equal(t, Stopped, l.State())
}

type failingReader struct{ err error }

func (r failingReader) ReadByte() (byte, error) { return 0, r.err }

func TestRun_ReadError(t *testing.T) {
	readErr := errors.New("framing error")
	l := New(newRecorder(1, 2, 3), failingReader{readErr}, io.Discard)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, ErrInputClosed)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("tx overrun") }

func TestRun_WriteError(t *testing.T) {
	l := New(newRecorder(1, 2, 3), strings.NewReader("11q"), failingWriter{})

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tx overrun")
	assert.Equal(t, Stopped, l.State())
}

func TestRun_OpenError(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	conv.openErr = errors.New("no clock")
	var out bytes.Buffer

	l := New(conv, strings.NewReader("1q"), &out)
	err := l.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clock")
	assert.Empty(t, out.String())
	assert.Equal(t, 0, conv.count("start"))
}

func TestRun_ConversionTimeout(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	conv.doneAfter = -1
	var out bytes.Buffer

	l := New(conv, strings.NewReader("1q"), &out, WithTimeout(20*time.Millisecond), WithPollInterval(time.Millisecond))

	start := time.Now()
	err := l.Run(context.Background())

	assert.ErrorIs(t, err, ErrConversionTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, out.String(), "no triple is printed for a failed scan")
	assert.Equal(t, 0, conv.count("result(0)"))
	assert.Equal(t, Stopped, l.State())
}

func TestRun_ConversionTimeoutWithSim(t *testing.T) {
	sim := adc.NewSim(&adc.SimConfig{
		Values:     []int32{1, 2, 3},
		Resolution: 12,
		Stuck:      true,
	})

	l := New(sim, strings.NewReader("1q"), io.Discard, WithTimeout(10*time.Millisecond))
	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrConversionTimeout)
}

func TestRun_ContextCancelled(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(conv, strings.NewReader("1q"), io.Discard)
	err := l.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conv.calls)
}

func TestRun_ContextCancelledDuringWait(t *testing.T) {
	conv := newRecorder(1, 2, 3)
	conv.doneAfter = -1
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	l := New(conv, strings.NewReader("1q"), io.Discard, WithTimeout(time.Minute), WithPollInterval(time.Millisecond))
	err := l.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConversionTimeout)
}

func TestRun_WithSim(t *testing.T) {
	sim := adc.NewSim(&adc.SimConfig{
		Values:     []int32{120, 340, 4095},
		Resolution: 12,
	})
	var out bytes.Buffer

	l := New(sim, strings.NewReader("11x"), &out)
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, "{120, 340, 4095},{120, 340, 4095},", out.String())

	// Scans are independent of each other
	sim.SetValues(5, 6, 7)
	out.Reset()
	l = New(sim, strings.NewReader("1x"), &out)
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, "{5, 6, 7},", out.String())
}

func TestScan(t *testing.T) {
	conv := newRecorder(10, 20, 30)
	l := New(conv, strings.NewReader(""), io.Discard)

	res, err := l.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{R: 10, G: 20, B: 30}, res)
	assert.Equal(t, scanCalls, conv.calls)
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Banner(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\n+---"))
	assert.Contains(t, out, "ADC single cycle scan mode")
	assert.NotContains(t, out, "{", "banner must not look like a result token")
}
