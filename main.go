package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/redline/internal/commands"
	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/internal/core/logging"
	"github.com/colonyops/redline/internal/core/styles"
	"github.com/colonyops/redline/internal/redline"
	"github.com/colonyops/redline/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		busCancel  context.CancelFunc
		redlineApp = &redline.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "redline",
		Usage:     "Stream proposed edits into markdown documents",
		UsageText: "redline [global options] command [command options]",
		Description: `Redline selects part of a markdown document, asks a text generator for a
replacement and streams the proposal into the document next to the
original. Nothing changes until the proposal is accepted.

Run 'redline edit' for a one-shot edit, 'redline review' for the
interactive view, or 'redline serve' to drive edits over HTTP.`,
		Version: build(),
		Flags:   commands.GlobalFlags(flags),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Always log to a file; use explicit path or default to <datadir>/redline.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = cfg.LogFile()
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			palette, ok := styles.GetPalette(cfg.Render.Theme)
			if !ok {
				log.Warn().Str("theme", cfg.Render.Theme).Msg("unknown theme, using default")
				palette, _ = styles.GetPalette(styles.DefaultTheme)
			}
			styles.SetTheme(palette)

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			a, err := redline.NewApp(cfg, log.With().Str("cmp", "redline").Logger())
			if err != nil {
				return ctx, err
			}
			*redlineApp = *a

			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			redlineApp.Start(busCtx)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if busCancel != nil {
				busCancel()
			}

			if err := redlineApp.Close(); err != nil {
				log.Error().Err(err).Msg("close storage")
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.RegisterAll(app, flags, redlineApp)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
