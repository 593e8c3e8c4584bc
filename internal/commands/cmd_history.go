package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/core/styles"
	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags
	app   *redline.App

	// flags
	jsonOutput bool
	limit      int
	last       bool
}

// NewHistoryCmd creates a new history command.
func NewHistoryCmd(flags *Flags, app *redline.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the history command to the application.
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List accepted and rejected proposals",
		UsageText: "redline history [--json] [--limit n]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "show at most n entries (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
		},
		Action: cmd.runList,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one entry by entry or diff ID",
				UsageText: "redline history show [--last] <id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "last",
						Usage:       "show the most recent accepted entry",
						Destination: &cmd.last,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:   "clear",
				Usage:  "Delete all history entries",
				Action: cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) runList(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.app.History.List(ctx)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if cmd.limit > 0 && len(entries) > cmd.limit {
		entries = entries[:cmd.limit]
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, entries)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No history")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDIFF\tSTRATEGY\tOUTCOME\tRESOLVED\tORIGINAL")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, shortID(e.DiffID), e.Strategy, outcomeLabel(e), e.ResolvedAt.Format(time.DateTime), preview(e.OriginalText, 40))
	}
	return w.Flush()
}

func (cmd *HistoryCmd) runShow(ctx context.Context, c *cli.Command) error {
	var (
		entry history.Entry
		err   error
	)
	switch {
	case cmd.last:
		entry, err = cmd.app.History.LastAccepted(ctx)
	case c.Args().First() != "":
		entry, err = cmd.app.History.Get(ctx, c.Args().First())
	default:
		return fmt.Errorf("entry ID is required (or use --last)")
	}
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no matching history entry")
	}
	if err != nil {
		return err
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, entry)
}

func (cmd *HistoryCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.History.Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	_, _ = lipgloss.Fprintln(c.Root().Writer, styles.MutedStyle.Render("history cleared"))
	return nil
}

func outcomeLabel(e history.Entry) string {
	if e.Fallback {
		return string(e.Outcome) + " (kept original)"
	}
	if e.Failure != "" {
		return string(e.Outcome) + " (failed)"
	}
	return string(e.Outcome)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
