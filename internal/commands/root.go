package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/redline"
)

// GlobalFlags returns the root command flags, bound to f.
func GlobalFlags(f *Flags) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error, fatal, panic)",
			Sources:     cli.EnvVars("REDLINE_LOG_LEVEL"),
			Value:       "info",
			Destination: &f.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "path to log file (defaults to <data-dir>/redline.log)",
			Sources:     cli.EnvVars("REDLINE_LOG_FILE"),
			Destination: &f.LogFile,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to config file (.yaml or .toml)",
			Sources:     cli.EnvVars("REDLINE_CONFIG"),
			Value:       DefaultConfigPath(),
			Destination: &f.ConfigPath,
		},
		&cli.StringFlag{
			Name:        "data-dir",
			Usage:       "path to data directory",
			Sources:     cli.EnvVars("REDLINE_DATA_DIR"),
			Value:       DefaultDataDir(),
			Destination: &f.DataDir,
		},
	}
}

// RegisterAll adds every redline command to app.
func RegisterAll(app *cli.Command, flags *Flags, a *redline.App) *cli.Command {
	app = NewEditCmd(flags, a).Register(app)
	app = NewReviewCmd(flags, a).Register(app)
	app = NewServeCmd(flags, a).Register(app)
	app = NewShowCmd(flags, a).Register(app)
	app = NewHistoryCmd(flags, a).Register(app)
	app = NewConfigValidateCmd(flags).Register(app)
	return app
}
