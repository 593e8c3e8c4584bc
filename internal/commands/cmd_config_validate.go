package commands

import (
	"context"
	"errors"

	"charm.land/lipgloss/v2"
	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/styles"
	"github.com/colonyops/redline/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "redline config validate [options]",
				Description: "Validates the configuration file, checking the prompt template, rule globs, render style and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// validationError is one failed check.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	errs := collectErrors(cfg.ValidateDeep(cmd.flags.ConfigPath))
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		out := struct {
			Valid    bool                       `json:"valid"`
			Errors   []validationError          `json:"errors,omitempty"`
			Warnings []config.ValidationWarning `json:"warnings,omitempty"`
		}{
			Valid:    len(errs) == 0,
			Errors:   errs,
			Warnings: warnings,
		}
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); err != nil {
			return err
		}
		if len(errs) > 0 {
			return cli.Exit("", 1)
		}
		return nil
	}

	w := c.Root().Writer
	for _, warn := range warnings {
		_, _ = lipgloss.Fprintf(w, "%s %s: %s\n", styles.MutedStyle.Render("warn"), warn.Category, warn.Message)
		if warn.Item != "" {
			_, _ = lipgloss.Fprintf(w, "  Item: %s\n", warn.Item)
		}
	}
	for _, e := range errs {
		_, _ = lipgloss.Fprintf(w, "%s %s: %s\n", styles.ErrorStyle.Render("error"), e.Field, e.Message)
	}

	if len(errs) == 0 {
		_, _ = lipgloss.Fprintln(w, styles.ProposalStyle.Render("Configuration is valid"))
		return nil
	}

	_, _ = lipgloss.Fprintln(w, styles.ErrorStyle.Render("Configuration is invalid"))
	return cli.Exit("", 1)
}

// collectErrors flattens criterio field errors; any other error is
// reported against the whole config.
func collectErrors(err error) []validationError {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationError{{Field: "config", Message: err.Error()}}
	}

	out := make([]validationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validationError{Field: fe.Field, Message: fe.Err.Error()})
	}
	return out
}
