package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "charm.land/bubbletea/v2"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/internal/tui"
)

type ReviewCmd struct {
	flags *Flags
	app   *redline.App

	proposal proposalFlags
}

// NewReviewCmd creates a new review command.
func NewReviewCmd(flags *Flags, app *redline.App) *ReviewCmd {
	return &ReviewCmd{flags: flags, app: app}
}

// Register adds the review command to the application.
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Stream a proposal into a full-screen review view",
		UsageText: "redline review [options] <file>",
		Description: `Review opens a focused TUI that shows the proposal arriving live inside the
document. Accept with 'a' or enter, reject with 'r', stop generation with
esc. Quitting rejects the proposal.

Accepted changes are written back to the file.

Examples:
  redline review -m "## Summary" -i "tighten this section" plan.md`,
		Flags:  cmd.proposal.flags(),
		Action: cmd.run,
	})

	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("document path is required")
	}

	e, err := cmd.proposal.begin(ctx, cmd.app, path)
	if err != nil {
		if errors.Is(err, errCancelled) {
			return nil
		}
		return err
	}

	watcher, err := tui.NewDocWatcher(path)
	if err != nil {
		// the review still works, it just cannot flag outside edits
		cmd.app.Log.Warn().Err(err).Str("path", path).Msg("document watcher unavailable")
	} else {
		defer func() { _ = watcher.Close() }()
	}

	m := tui.New(tui.Options{
		Engine:    e.doc.Engine,
		Generator: e.gen,
		Watcher:   watcher,
		DiffID:    e.session.ID,
		Title:     filepath.Base(path),
	})

	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run review TUI: %w", err)
	}

	result, ok := final.(tui.Model)
	if !ok {
		return fmt.Errorf("unexpected model %T", final)
	}
	entry, resolved := result.Result()
	if !resolved {
		if err := result.Err(); err != nil {
			return err
		}
		return nil
	}

	if entry.Accepted() {
		if err := e.doc.Save(ctx); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%s %s\n", entry.Outcome, path)
	return nil
}
