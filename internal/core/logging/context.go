package logging

import "context"

type contextKey string

const (
	diffIDKey   contextKey = "diff_id"
	strategyKey contextKey = "strategy"
	documentKey contextKey = "document"
)

// WithDiffID adds a diff ID to the context.
func WithDiffID(ctx context.Context, diffID string) context.Context {
	return context.WithValue(ctx, diffIDKey, diffID)
}

// WithStrategy adds the diff strategy name to the context.
func WithStrategy(ctx context.Context, strategy string) context.Context {
	return context.WithValue(ctx, strategyKey, strategy)
}

// GetDiffID retrieves the diff ID from the context.
// Returns empty string if not present.
func GetDiffID(ctx context.Context) string {
	if id, ok := ctx.Value(diffIDKey).(string); ok {
		return id
	}
	return ""
}

// GetStrategy retrieves the strategy name from the context.
// Returns empty string if not present.
func GetStrategy(ctx context.Context) string {
	if s, ok := ctx.Value(strategyKey).(string); ok {
		return s
	}
	return ""
}

// WithDocument adds the path of the document being edited to the context.
func WithDocument(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, documentKey, path)
}

// GetDocument retrieves the document path from the context.
func GetDocument(ctx context.Context) string {
	p, _ := ctx.Value(documentKey).(string)
	return p
}
