package client

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/rgbscan/pkg/sampler"
)

// Sample is one decoded scan result.
type Sample struct {
	Timestamp time.Time // Receive time
	R, G, B   int32
}

// Result returns the raw triple.
func (s Sample) Result() sampler.Result {
	return sampler.Result{R: s.R, G: s.G, B: s.B}
}

// ParseTriple parses a "{R, G, B}" token. The trailing comma is optional.
// Example: {120, 340, 4095},
func ParseTriple(token string) (Sample, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(token, ",")

	if !strings.HasPrefix(token, "{") || !strings.HasSuffix(token, "}") {
		return Sample{}, fmt.Errorf("invalid token format: expected braces around values")
	}

	parts := strings.Split(token[1:len(token)-1], ",")
	if len(parts) != 3 {
		return Sample{}, fmt.Errorf("invalid token format: expected 3 comma-separated values, got %d", len(parts))
	}

	var values [3]int32
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return Sample{}, fmt.Errorf("invalid channel %d value: %w", i, err)
		}
		values[i] = int32(v)
	}

	return Sample{R: values[0], G: values[1], B: values[2]}, nil
}

// maxTokenLen bounds a "{R, G, B}" token; three int32 values fit in 40 bytes.
const maxTokenLen = 64

// scanTriples is a bufio.SplitFunc yielding "{...}" tokens. Bytes outside
// braces (banner text, separators) are discarded. An unmatched '{' is dropped
// when another '{' follows it or no '}' arrives within maxTokenLen bytes.
func scanTriples(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return len(data), nil, nil
	}

	end := bytes.IndexAny(data[start+1:], "{}")
	if end < 0 {
		if atEOF {
			// Truncated token
			return len(data), nil, nil
		}
		if len(data)-start > maxTokenLen {
			return start + 1, nil, nil
		}
		return start, nil, nil
	}
	end += start + 1

	if data[end] == '{' {
		// Resync on the later brace
		return end, nil, nil
	}

	advance = end + 1
	if advance < len(data) && data[advance] == ',' {
		advance++
	}
	return advance, data[start : end+1], nil
}

// readSamples decodes the token stream from r into out until r ends or ctx
// is done. It closes out on return.
func readSamples(ctx context.Context, r io.Reader, out chan<- Sample) {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Split(scanTriples)

	for scanner.Scan() {
		token := scanner.Text()
		sample, err := ParseTriple(token)
		if err != nil {
			log.Printf("Failed to parse token '%s': %v", token, err)
			continue
		}
		sample.Timestamp = time.Now()

		select {
		case out <- sample:
		case <-ctx.Done():
			return
		default:
			log.Printf("Samples channel full, dropping sample")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Error reading samples: %v", err)
	}
}
