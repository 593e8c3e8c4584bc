package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/redline/internal/core/logging"
	"github.com/colonyops/redline/internal/generate"
)

// Stream feeds a generator's output into a submitted diff, one transaction
// per chunk and in order. It returns when the generator is done, fails, or
// the diff is aborted. On normal completion the stream is finished but the
// diff is left for the user to accept or reject.
//
// Cancelling ctx aborts the diff.
func (e *Engine) Stream(ctx context.Context, diffID string, gen generate.Generator) error {
	s, err := e.Session(diffID)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	lctx := logging.WithStrategy(logging.WithDiffID(ctx, diffID), string(s.Strategy))

	// stops the generator when we return early
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := gen.Generate(gctx, generate.Request{
		Selection:   s.OriginalText,
		Instruction: s.Instruction,
		Context:     s.Context,
	})
	if err != nil {
		_ = e.Fail(lctx, diffID, err)
		return fmt.Errorf("stream %s: %w: %w", diffID, ErrGeneration, err)
	}

	var acc string
	for {
		select {
		case <-ctx.Done():
			_ = e.Abort(context.WithoutCancel(lctx), diffID)
			return fmt.Errorf("stream %s: %w: %w", diffID, ErrAborted, ctx.Err())
		case chunk, ok := <-chunks:
			if !ok {
				return e.FinishStream(lctx, diffID)
			}
			if chunk.Err != nil {
				_ = e.Fail(lctx, diffID, chunk.Err)
				return fmt.Errorf("stream %s: %w: %w", diffID, ErrGeneration, chunk.Err)
			}

			if chunk.Full {
				acc = chunk.Text
			} else {
				acc += chunk.Text
			}

			if err := e.UpdateStream(lctx, diffID, acc); err != nil {
				if errors.Is(err, ErrAborted) {
					e.log.Debug().Ctx(lctx).Msg("dropping chunks after abort")
				}
				return err
			}
		}
	}
}
