package generate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/config"
)

func collect(t *testing.T, ch <-chan Chunk) ([]string, error) {
	t.Helper()
	var out []string
	for c := range ch {
		if c.Err != nil {
			return out, c.Err
		}
		out = append(out, c.Text)
	}
	return out, nil
}

func TestStatic_Generate(t *testing.T) {
	tests := []struct {
		name string
		text string
		req  Request
		want []string
	}{
		{
			name: "words keep their spacing",
			text: "The quick  fox",
			want: []string{"The ", "quick  ", "fox"},
		},
		{
			name: "paragraph breaks stay attached",
			text: "X.\n\nY.",
			want: []string{"X.\n\n", "Y."},
		},
		{
			name: "empty text echoes the selection",
			req:  Request{Selection: "world"},
			want: []string{"world"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := Static{Text: tt.text}.Generate(context.Background(), tt.req)
			require.NoError(t, err)

			got, err := collect(t, ch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Static{Text: "a b c d e"}.Generate(ctx, Request{})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "a ", first.Text)
	cancel()

	// at most the send already in flight gets through
	n := 0
	for range ch {
		n++
	}
	assert.LessOrEqual(t, n, 1)
}

func TestPrompt_Render(t *testing.T) {
	t.Run("default template", func(t *testing.T) {
		out, err := Prompt{}.Render(Request{Selection: "world", Instruction: " make it Earth "})
		require.NoError(t, err)
		assert.Contains(t, out, "Instruction: make it Earth")
		assert.Contains(t, out, "```\nworld\n```")
		assert.Contains(t, out, "(none)")
	})

	t.Run("custom template with vars", func(t *testing.T) {
		p := Prompt{
			Template: "{{ .Vars.tone }}: {{ .Selection }}",
			Vars:     map[string]any{"tone": "formal"},
		}
		out, err := p.Render(Request{Selection: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "formal: hi", out)
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := Prompt{Template: "{{ .Nope }}"}.Render(Request{})
		require.Error(t, err)
	})
}

func TestLua_Generate(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    []string
		wantErr string
	}{
		{
			name:   "returns a string",
			script: `function generate(req) return string.upper(req.selection) end`,
			want:   []string{"WORLD"},
		},
		{
			name:   "returns a chunk list",
			script: `function generate(req) return { "The ", "quick ", "fox" } end`,
			want:   []string{"The ", "quick ", "fox"},
		},
		{
			name: "emits and returns",
			script: `function generate(req)
  emit("Hello ")
  return req.instruction
end`,
			want: []string{"Hello ", "Earth"},
		},
		{
			name:    "runtime error",
			script:  `function generate(req) error("boom") end`,
			wantErr: "boom",
		},
		{
			name:    "no generate function",
			script:  `x = 1`,
			wantErr: "generate is not a function",
		},
		{
			name:    "bad return type",
			script:  `function generate(req) return 42 end`,
			wantErr: "want string or table",
		},
		{
			name:    "file access is not available",
			script:  `function generate(req) return dofile("/etc/passwd") end`,
			wantErr: "test.lua",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewLuaString("test.lua", tt.script, Options{})
			ch, err := g.Generate(context.Background(), Request{Selection: "world", Instruction: "Earth"})
			require.NoError(t, err)

			got, err := collect(t, ch)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLua_SeesPrompt(t *testing.T) {
	g := NewLuaString("p.lua", `function generate(req) return req.prompt end`, Options{
		Prompt: Prompt{Template: "rewrite {{ .Selection }}"},
	})
	ch, err := g.Generate(context.Background(), Request{Selection: "this"})
	require.NoError(t, err)

	got, err := collect(t, ch)
	require.NoError(t, err)
	assert.Equal(t, []string{"rewrite this"}, got)
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "gen.lua")
	require.NoError(t, os.WriteFile(script, []byte(`function generate(req) return "ok" end`), 0o644))

	tests := []struct {
		name    string
		setup   func(c *config.Config)
		check   func(t *testing.T, g Generator)
		wantErr error
	}{
		{
			name: "static",
			check: func(t *testing.T, g Generator) {
				assert.IsType(t, Static{}, g)
			},
		},
		{
			name: "lua resolved next to config file",
			setup: func(c *config.Config) {
				c.Provider.Name = config.ProviderLua
				c.Provider.Script = "gen.lua"
				c.File = filepath.Join(dir, "config.yaml")
			},
			check: func(t *testing.T, g Generator) {
				assert.IsType(t, &Lua{}, g)
			},
		},
		{
			name: "hosted provider without key",
			setup: func(c *config.Config) {
				c.Provider.Name = config.ProviderAnthropic
				c.Provider.APIKeyEnv = "REDLINE_TEST_UNSET_KEY"
			},
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "openai with key",
			setup: func(c *config.Config) {
				c.Provider.Name = config.ProviderOpenAI
				c.Provider.APIKeyEnv = "REDLINE_TEST_OPENAI_KEY"
				t.Setenv("REDLINE_TEST_OPENAI_KEY", "sk-test")
			},
			check: func(t *testing.T, g Generator) {
				o, ok := g.(*OpenAI)
				require.True(t, ok)
				assert.Equal(t, DefaultOpenAIModel, o.opts.Model)
			},
		},
		{
			name: "unknown",
			setup: func(c *config.Config) {
				c.Provider.Name = "parrot"
			},
			wantErr: ErrUnknownProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DataDir = dir
			if tt.setup != nil {
				tt.setup(&cfg)
			}

			g, err := New(context.Background(), &cfg, zerolog.Nop())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, g)
		})
	}
}

func TestSplitWords(t *testing.T) {
	in := "  lead and trail  "
	assert.Equal(t, in, strings.Join(splitWords(in), ""))
	assert.Empty(t, splitWords(""))
}
