// Package styles provides shared lipgloss v2 styles for CLI and TUI output.
package styles

import (
	lipgloss "charm.land/lipgloss/v2"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	DividerStyle       lipgloss.Style
	ErrorStyle         lipgloss.Style
	WarningStyle       lipgloss.Style
	MutedStyle         lipgloss.Style

	// Diff styles. Proposal text is what accept would keep; original text is
	// what it would remove.
	ProposalStyle  lipgloss.Style
	OriginalStyle  lipgloss.Style
	ContainerStyle lipgloss.Style

	// Review view styles.
	TitleStyle      lipgloss.Style
	HelpStyle       lipgloss.Style
	KeyStyle        lipgloss.Style
	StatusStyles    map[string]lipgloss.Style
	InstructionText lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	DividerStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	ErrorStyle = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)
	WarningStyle = lipgloss.NewStyle().
		Foreground(p.Warning)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	ProposalStyle = lipgloss.NewStyle().
		Foreground(p.Success)
	OriginalStyle = lipgloss.NewStyle().
		Foreground(p.Error).
		Strikethrough(true)
	ContainerStyle = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(p.Success).
		PaddingLeft(1)

	TitleStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		MarginTop(1)
	KeyStyle = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)
	InstructionText = lipgloss.NewStyle().
		Foreground(p.Foreground).
		Italic(true)

	StatusStyles = map[string]lipgloss.Style{
		"triggered": lipgloss.NewStyle().Foreground(p.Muted),
		"submitted": lipgloss.NewStyle().Foreground(p.Secondary),
		"streaming": lipgloss.NewStyle().Foreground(p.Warning),
		"ready":     lipgloss.NewStyle().Foreground(p.Success),
		"cancelled": lipgloss.NewStyle().Foreground(p.Muted).Italic(true),
		"failed":    lipgloss.NewStyle().Foreground(p.Error),
		"accepted":  lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		"rejected":  lipgloss.NewStyle().Foreground(p.Error).Bold(true),
	}
}

// StatusStyle returns the style for a session status or history outcome,
// falling back to the muted style for unknown values.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := StatusStyles[status]; ok {
		return s
	}
	return MutedStyle
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}
