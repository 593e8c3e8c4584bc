package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/internal/render"
)

type ShowCmd struct {
	flags *Flags
	app   *redline.App

	raw bool
}

// NewShowCmd creates a new show command.
func NewShowCmd(flags *Flags, app *redline.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application.
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Render a markdown document in the terminal",
		UsageText: "redline show [--raw] <file>",
		Description: `Show loads the document the way edit does and renders it with the
configured render.style. --raw prints the normalized markdown instead.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print normalized markdown",
				Destination: &cmd.raw,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("document path is required")
	}

	d, err := cmd.app.Open(path)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.raw {
		src, err := d.Markdown()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(out, src)
		return err
	}

	root, err := d.Engine.Snapshot()
	if err != nil {
		return err
	}
	rendered, err := render.ForWriter(cmd.flags.Config.Render, out).Document(root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
