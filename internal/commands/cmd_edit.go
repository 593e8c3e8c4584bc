package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/engine"
	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/internal/render"
	"github.com/colonyops/redline/pkg/iojson"
)

type EditCmd struct {
	flags *Flags
	app   *redline.App

	proposal proposalFlags
	accept   bool
	reject   bool
	dryRun   bool
	json     bool
}

// NewEditCmd creates a new edit command.
func NewEditCmd(flags *Flags, app *redline.App) *EditCmd {
	return &EditCmd{flags: flags, app: app}
}

// Register adds the edit command to the application.
func (cmd *EditCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "edit",
		Usage:     "Propose a change to part of a markdown document",
		UsageText: "redline edit [options] <file>",
		Description: `Selects the first occurrence of --match, streams a proposal for it and
shows the annotated document. The change is then accepted or rejected,
either from --accept/--reject or interactively.

Accepted changes are written back to the file unless --dry-run is set.
Interrupting the stream keeps the partial proposal for review.

Examples:
  redline edit -m "quick fox" -i "make it slower" notes.md
  redline edit -m "TODO" --reply "Done." --accept notes.md`,
		Flags: append(cmd.proposal.flags(),
			&cli.BoolFlag{
				Name:        "accept",
				Aliases:     []string{"y"},
				Usage:       "accept the proposal without asking",
				Destination: &cmd.accept,
			},
			&cli.BoolFlag{
				Name:        "reject",
				Usage:       "reject the proposal without asking",
				Destination: &cmd.reject,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "print the resulting document instead of writing it",
				Destination: &cmd.dryRun,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the resolution as JSON",
				Destination: &cmd.json,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *EditCmd) run(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("document path is required")
	}
	if cmd.accept && cmd.reject {
		return fmt.Errorf("--accept and --reject are mutually exclusive")
	}

	e, err := cmd.proposal.begin(ctx, cmd.app, path)
	if err != nil {
		if errors.Is(err, errCancelled) {
			return nil
		}
		return err
	}

	out := c.Root().Writer
	eng := e.doc.Engine

	sctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	err = eng.Stream(sctx, e.session.ID, e.gen)
	stop()
	switch {
	case errors.Is(err, engine.ErrAborted):
		log.Info().Str("diff_id", e.session.ID).Msg("generation interrupted")
	case err != nil:
		_, _ = eng.Reject(ctx, e.session.ID)
		if cmd.json {
			_ = iojson.WriteError(c.Root().ErrWriter, err.Error(), map[string]any{
				"diff_id": e.session.ID,
				"path":    e.doc.Path,
			})
		}
		return err
	}

	if !cmd.json {
		if err := render.WriteAnnotated(out, eng.Editor().Doc()); err != nil {
			return err
		}
	}

	outcome, err := cmd.decide()
	if err != nil {
		_, _ = eng.Reject(ctx, e.session.ID)
		return err
	}

	var entry history.Entry
	if outcome == history.OutcomeAccepted {
		entry, err = eng.Accept(ctx, e.session.ID)
	} else {
		entry, err = eng.Reject(ctx, e.session.ID)
	}
	if err != nil {
		return err
	}

	if entry.Accepted() {
		if cmd.dryRun {
			if err := cmd.printDocument(c, e.doc); err != nil {
				return err
			}
		} else if err := e.doc.Save(ctx); err != nil {
			return err
		}
	}

	if cmd.json {
		return iojson.WriteWith(out, c.Root().ErrWriter, entry)
	}
	if !cmd.dryRun {
		_, _ = fmt.Fprintf(out, "%s %s\n", entry.Outcome, e.doc.Path)
	}
	return nil
}

// decide returns the outcome from flags, or asks when stdin is a terminal.
func (cmd *EditCmd) decide() (history.Outcome, error) {
	switch {
	case cmd.accept:
		return history.OutcomeAccepted, nil
	case cmd.reject:
		return history.OutcomeRejected, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no decision provided (stdin is not a terminal); use --accept or --reject")
	}

	var ok bool
	err := huh.NewConfirm().
		Title("Apply this change?").
		Affirmative("Accept").
		Negative("Reject").
		Value(&ok).
		Run()
	if err != nil && !errors.Is(err, huh.ErrUserAborted) {
		return "", fmt.Errorf("form: %w", err)
	}
	if ok {
		return history.OutcomeAccepted, nil
	}
	return history.OutcomeRejected, nil
}

func (cmd *EditCmd) printDocument(c *cli.Command, d *redline.Document) error {
	root, err := d.Engine.Snapshot()
	if err != nil {
		return err
	}
	out, err := render.ForWriter(cmd.flags.Config.Render, c.Root().Writer).Document(root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(c.Root().Writer, out)
	return err
}
