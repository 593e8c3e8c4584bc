// Package render draws documents for the terminal: a glamour preview of the
// markdown form and an annotated view that shows live proposals next to the
// text they would replace.
package render

import (
	"fmt"
	"io"
	"os"

	lipgloss "charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/internal/core/styles"
)

// Style names accepted in render.style besides glamour's standard styles
// and style file paths.
const (
	StyleAuto  = "auto"  // glamour picks dark or light from the terminal
	StyleTheme = "theme" // derived from the active styles palette
	StylePlain = "notty" // no colors, used when output is not a terminal
)

// Renderer renders documents with a fixed style and wrap width.
type Renderer struct {
	style string
	width int
	tty   bool
}

// New creates a renderer for cfg. When tty is false the glamour style is
// forced to plain text.
func New(cfg config.RenderConfig, tty bool) *Renderer {
	return &Renderer{style: cfg.Style, width: cfg.Width, tty: tty}
}

// ForWriter creates a renderer for cfg, detecting whether w is a terminal.
func ForWriter(cfg config.RenderConfig, w io.Writer) *Renderer {
	return New(cfg, IsTerminal(w))
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (r *Renderer) options() []glamour.TermRendererOption {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(r.width)}

	style := r.style
	if !r.tty {
		style = StylePlain
	}
	switch style {
	case StyleAuto, "":
		opts = append(opts, glamour.WithAutoStyle())
	case StyleTheme:
		opts = append(opts, glamour.WithStyles(styles.GlamourStyle()))
	default:
		opts = append(opts, glamour.WithStylePath(style))
	}
	return opts
}

// Markdown renders markdown source with glamour.
func (r *Renderer) Markdown(src string) (string, error) {
	tr, err := glamour.NewTermRenderer(r.options()...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := tr.Render(src)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// Document renders the markdown form of root. Diff marks are dropped, so a
// live proposal shows as the text accept would produce, next to the
// original text of a block proposal.
func (r *Renderer) Document(root *doc.Node) (string, error) {
	return r.Markdown(markdown.Render(root))
}

// WriteAnnotated writes the annotated view of root to w. Colors are
// downsampled to what w supports.
func WriteAnnotated(w io.Writer, root *doc.Node) error {
	_, err := lipgloss.Fprint(w, Annotated(root))
	return err
}
