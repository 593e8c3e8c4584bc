package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThemes(t *testing.T) {
	names := ThemeNames()
	assert.Contains(t, names, DefaultTheme)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		p, ok := GetPalette(name)
		require.True(t, ok, name)
		assert.NotNil(t, p.Success, name)
		assert.NotNil(t, p.Error, name)
	}

	_, ok := GetPalette("no-such-theme")
	assert.False(t, ok)
}

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { SetTheme(themes[DefaultTheme]) })

	gruvbox, _ := GetPalette("gruvbox")
	SetTheme(gruvbox)

	assert.Equal(t, gruvbox, CurrentPalette)
	assert.Equal(t, gruvbox.Success, ProposalStyle.GetForeground())
	assert.True(t, OriginalStyle.GetStrikethrough())

	cfg := GlamourStyle()
	require.NotNil(t, cfg.Document.Color)
	assert.Equal(t, "#ebdbb2", *cfg.Document.Color)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, IconAccepted, StatusIcon("accepted"))
	assert.Equal(t, IconPending, StatusIcon("triggered"))
	assert.Equal(t, MutedStyle.GetForeground(), StatusStyle("unknown").GetForeground())
}

func TestPalette_Dark(t *testing.T) {
	tests := []struct {
		theme string
		want  bool
	}{
		{theme: "tokyo-night", want: true},
		{theme: "gruvbox", want: true},
		{theme: "light", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.theme, func(t *testing.T) {
			p, ok := GetPalette(tt.theme)
			require.True(t, ok)
			assert.Equal(t, tt.want, p.Dark())
		})
	}

	assert.True(t, Palette{}.Dark(), "missing background counts as dark")
}

func TestGlamourStyle_LightBase(t *testing.T) {
	t.Cleanup(func() { SetTheme(themes[DefaultTheme]) })

	light, _ := GetPalette("light")
	SetTheme(light)

	cfg := GlamourStyle()
	require.NotNil(t, cfg.Document.Color)
	assert.Equal(t, "#24292f", *cfg.Document.Color)
}
