package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/redline/internal/core/diffsession"
)

func TestValidateDeep(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config, dir string)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config, string) {},
		},
		{
			name: "invalid glob",
			mutate: func(c *Config, _ string) {
				c.Rules = []Rule{{Pattern: "docs/[", Strategy: diffsession.StrategyInline}}
			},
			wantErr: "rules[0].pattern",
		},
		{
			name: "prompt references unknown field",
			mutate: func(c *Config, _ string) {
				c.Provider.Prompt = "{{ .Nope }}"
			},
			wantErr: "provider.prompt",
		},
		{
			name: "prompt can use vars",
			mutate: func(c *Config, _ string) {
				c.Vars = map[string]any{"tone": "formal"}
				c.Provider.Prompt = "Be {{ .Vars.tone }}. {{ .Selection }}"
			},
		},
		{
			name: "built-in render style",
			mutate: func(c *Config, _ string) {
				c.Render.Style = "dracula"
			},
		},
		{
			name: "unknown render style",
			mutate: func(c *Config, _ string) {
				c.Render.Style = "no-such-style"
			},
			wantErr: "render.style",
		},
		{
			name: "missing lua script",
			mutate: func(c *Config, dir string) {
				c.Provider.Name = ProviderLua
				c.Provider.Script = "missing.lua"
			},
			wantErr: "provider.script",
		},
		{
			name: "lua script resolved next to config",
			mutate: func(c *Config, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "gen.lua"), []byte("return {}"), 0o644))
				c.Provider.Name = ProviderLua
				c.Provider.Script = "gen.lua"
			},
		},
		{
			name: "data dir is a file",
			mutate: func(c *Config, dir string) {
				f := filepath.Join(dir, "file")
				require.NoError(t, os.WriteFile(f, nil, 0o644))
				c.DataDir = f
			},
			wantErr: "data_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := DefaultConfig()
			cfg.DataDir = filepath.Join(dir, "data")
			tt.mutate(&cfg, dir)

			err := cfg.ValidateDeep(filepath.Join(dir, "config.yaml"))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.NotEmpty(t, fieldErrs)
			assert.Contains(t, fieldErrs[0].Field, tt.wantErr)
		})
	}
}

func TestWarnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider.Name = ProviderOpenAI
	cfg.Provider.APIKeyEnv = "REDLINE_TEST_UNSET_KEY"
	cfg.Rules = []Rule{
		{Pattern: "*.md", Strategy: diffsession.StrategyInline},
		{Pattern: "*.md", Strategy: diffsession.StrategyBlock},
	}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "Provider", warnings[0].Category)
	assert.Contains(t, warnings[0].Message, "REDLINE_TEST_UNSET_KEY")
	assert.Equal(t, "Rules", warnings[1].Category)
}
