package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetDiffID(ctx))
	assert.Empty(t, GetStrategy(ctx))
	assert.Empty(t, GetDocument(ctx))

	ctx = WithDiffID(ctx, "diff-123")
	ctx = WithStrategy(ctx, "block")
	ctx = WithDocument(ctx, "notes.md")

	assert.Equal(t, "diff-123", GetDiffID(ctx))
	assert.Equal(t, "block", GetStrategy(ctx))
	assert.Equal(t, "notes.md", GetDocument(ctx))

	// inner values shadow outer ones
	assert.Equal(t, "other", GetDiffID(WithDiffID(ctx, "other")))
}
