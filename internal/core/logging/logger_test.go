package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent(t *testing.T) {
	tests := []struct {
		name   string
		fields []any
		want   map[string]any
	}{
		{
			name: "tag only",
			want: map[string]any{"cmp": "engine", "message": "hello"},
		},
		{
			name:   "with fields",
			fields: []any{"path", "notes.md", "size", 3},
			want:   map[string]any{"cmp": "engine", "path": "notes.md", "size": float64(3), "message": "hello"},
		},
	}

	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.Logger = zerolog.New(&buf)

			logger := Component("engine", tt.fields...)
			logger.Info().Msg("hello")

			var got map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
			delete(got, "level")
			assert.Equal(t, tt.want, got)
		})
	}
}
