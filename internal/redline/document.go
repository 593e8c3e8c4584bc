package redline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/doc"
	"github.com/colonyops/redline/internal/core/logging"
	"github.com/colonyops/redline/internal/core/markdown"
	"github.com/colonyops/redline/internal/engine"
)

// ErrNoMatch is returned by Select when the text does not occur in the
// document.
var ErrNoMatch = errors.New("text not found in document")

// Document is a markdown file loaded into an editor with its own engine.
type Document struct {
	Path   string
	Engine *engine.Engine

	log zerolog.Logger
}

// Open parses the markdown file at path. The engine's default strategy
// follows the configured rules for path.
func (a *App) Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	parser := markdown.NewGoldmark()
	root, err := markdown.ParseDocument(parser, string(data))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	ed, err := doc.NewEditor(root)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	log := a.Log.With().Str("document", filepath.Base(path)).Logger()
	eng := engine.New(ed, parser,
		engine.WithBus(a.Bus),
		engine.WithLogger(log),
		engine.WithHistory(a.History, a.Config.History.MaxEntries),
		engine.WithStrategy(a.Config.StrategyFor(path)),
	)

	log.Debug().Int("blocks", len(root.Content)).Msg("document opened")
	return &Document{Path: path, Engine: eng, log: log}, nil
}

// Select moves the editor selection to the first occurrence of text.
func (d *Document) Select(text string) error {
	ed := d.Engine.Editor()
	r, ok := ed.Doc().FindText(text)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoMatch, text)
	}
	return ed.Select(r)
}

// Markdown renders the current committed document.
func (d *Document) Markdown() (string, error) {
	root, err := d.Engine.Snapshot()
	if err != nil {
		return "", err
	}
	return markdown.Render(root), nil
}

// Save writes the committed document back to its file.
func (d *Document) Save(ctx context.Context) error {
	root, err := d.Engine.Snapshot()
	if err != nil {
		return err
	}
	return d.Write(ctx, root)
}

// Write renders root as markdown and replaces the file atomically.
func (d *Document) Write(ctx context.Context, root *doc.Node) error {
	out := markdown.Render(root)

	tmp := d.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, d.Path); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	d.log.Info().Ctx(logging.WithDocument(ctx, d.Path)).Int("bytes", len(out)).Msg("document saved")
	return nil
}
