package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies the diff_id, strategy and document carried by an
// event's context onto the event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if diffID := GetDiffID(ctx); diffID != "" {
		e.Str("diff_id", diffID)
	}

	if strategy := GetStrategy(ctx); strategy != "" {
		e.Str("strategy", strategy)
	}

	if path := GetDocument(ctx); path != "" {
		e.Str("document", path)
	}
}
