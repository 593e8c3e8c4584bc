package logutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "redline.log")

	l, closer, err := New("info", file)
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("diff_id", "d1").Msg("visible")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"diff_id":"d1"`)
	assert.NotContains(t, string(data), "hidden")
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}

func TestNew_AppendsAcrossRuns(t *testing.T) {
	file := filepath.Join(t.TempDir(), "redline.log")

	for _, msg := range []string{"first", "second"} {
		l, closer, err := New("info", file)
		require.NoError(t, err)
		l.Info().Msg(msg)
		closer()
	}

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}
