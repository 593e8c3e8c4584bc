package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHook_Run(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want map[string]string
	}{
		{
			name: "all values",
			ctx:  WithDocument(WithStrategy(WithDiffID(context.Background(), "diff-123"), "inline"), "notes.md"),
			want: map[string]string{"diff_id": "diff-123", "strategy": "inline", "document": "notes.md"},
		},
		{
			name: "only diff_id",
			ctx:  WithDiffID(context.Background(), "diff-123"),
			want: map[string]string{"diff_id": "diff-123"},
		},
		{
			name: "only document",
			ctx:  WithDocument(context.Background(), "a.md"),
			want: map[string]string{"document": "a.md"},
		},
		{
			name: "no context values",
			ctx:  context.Background(),
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf).Hook(ContextHook{})
			logger.Info().Ctx(tt.ctx).Msg("test")

			var got map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

			for _, key := range []string{"diff_id", "strategy", "document"} {
				want, ok := tt.want[key]
				if !ok {
					assert.NotContains(t, got, key)
					continue
				}
				assert.Equal(t, want, got[key], key)
			}
		})
	}
}

func TestContextHook_NoContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Hook(ContextHook{})
	logger.Info().Msg("plain")

	assert.NotContains(t, buf.String(), "diff_id")
}
