// Package generate defines the text source that proposes replacements and
// the providers that implement it.
package generate

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider has no key.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrUnknownProvider is returned by New for an unrecognized provider name.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Request is what a generator is asked to rewrite.
type Request struct {
	Selection   string
	Instruction string
	Context     string
}

// Chunk is one piece of generated output. A chunk with Full set carries the
// whole text generated so far; otherwise Text is a delta to append. A chunk
// with Err set is the last one sent.
type Chunk struct {
	Text string
	Full bool
	Err  error
}

// Generator produces a replacement as a stream of chunks. The channel is
// closed when generation ends. Implementations stop sending once ctx is
// done.
type Generator interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (<-chan Chunk, error)

func (f Func) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	return f(ctx, req)
}

// send delivers c unless ctx is done first.
func send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
