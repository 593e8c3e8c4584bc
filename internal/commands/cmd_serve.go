package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/core/logging"
	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/internal/server"
)

type ServeCmd struct {
	flags *Flags
	app   *redline.App

	addr  string
	reply string
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags, app *redline.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve a document's edit commands over HTTP",
		UsageText: "redline serve [options] <file>",
		Description: `Serve loads one markdown document and exposes selection, trigger, submit,
abort, accept and reject over a JSON HTTP API. Events are pushed to
websocket clients connected to /ws.

POST /document/save writes the document back to the file.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (defaults to server.addr from config)",
				Sources:     cli.EnvVars("REDLINE_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "reply",
				Usage:       "answer every submit with this text instead of the configured provider",
				Destination: &cmd.reply,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("document path is required")
	}

	addr := cmd.addr
	if addr == "" {
		addr = cmd.flags.Config.Server.Addr
	}

	gen, err := (&proposalFlags{reply: cmd.reply}).generator(ctx, cmd.app)
	if err != nil {
		return err
	}

	d, err := cmd.app.Open(path)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Engine:        d.Engine,
		Generator:     gen,
		History:       cmd.app.History,
		Notifications: cmd.app.Notifications,
		Bus:           cmd.app.Bus,
		Save:          d.Write,
		Logger:        logging.Component("server", "addr", addr, "document", path),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(c.Root().Writer, "serving %s on http://%s\n", path, addr)
	return srv.Run(ctx, addr)
}
