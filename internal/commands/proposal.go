package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/redline/internal/core/diffsession"
	"github.com/colonyops/redline/internal/generate"
	"github.com/colonyops/redline/internal/redline"
)

// errCancelled is returned by begin when the user dismisses the
// instruction prompt. The trigger has already been cancelled.
var errCancelled = errors.New("cancelled")

// proposalFlags are shared by the commands that open a single edit.
type proposalFlags struct {
	match       string
	instruction string
	reply       string
	strategy    string
}

func (f *proposalFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "match",
			Aliases:     []string{"m"},
			Usage:       "text to select (first occurrence)",
			Required:    true,
			Destination: &f.match,
		},
		&cli.StringFlag{
			Name:        "instruction",
			Aliases:     []string{"i"},
			Usage:       "what to do with the selection (prompts when omitted)",
			Destination: &f.instruction,
		},
		&cli.StringFlag{
			Name:        "reply",
			Usage:       "use this text as the proposal instead of the configured provider",
			Destination: &f.reply,
		},
		&cli.StringFlag{
			Name:        "strategy",
			Usage:       "inline or block (defaults to the configured rules)",
			Destination: &f.strategy,
		},
	}
}

// edit is an opened document with a submitted diff ready to stream.
type edit struct {
	doc     *redline.Document
	session diffsession.Session
	gen     generate.Generator
}

// begin opens path, selects the match, triggers and submits a diff.
func (f *proposalFlags) begin(ctx context.Context, app *redline.App, path string) (*edit, error) {
	strategy := diffsession.Strategy(f.strategy)
	if strategy != "" && !strategy.IsValid() {
		return nil, fmt.Errorf("strategy %q must be inline or block", f.strategy)
	}

	gen, err := f.generator(ctx, app)
	if err != nil {
		return nil, err
	}

	d, err := app.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Select(f.match); err != nil {
		return nil, err
	}

	s, err := d.Engine.Trigger(ctx, strategy)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}

	instruction, err := f.instructionFor(s)
	if err != nil {
		_ = d.Engine.CancelTrigger(ctx, s.ID)
		return nil, err
	}

	s, err = d.Engine.Submit(ctx, s.ID, instruction)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	return &edit{doc: d, session: s, gen: gen}, nil
}

func (f *proposalFlags) generator(ctx context.Context, app *redline.App) (generate.Generator, error) {
	if f.reply != "" {
		return generate.Static{Text: f.reply}, nil
	}
	return app.Generator(ctx)
}

func (f *proposalFlags) instructionFor(s diffsession.Session) (string, error) {
	if strings.TrimSpace(f.instruction) != "" {
		return f.instruction, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no instruction provided (stdin is not a terminal); use --instruction")
	}

	var instruction string
	err := huh.NewText().
		Title("Instruction").
		Description(fmt.Sprintf("Selected: %q", preview(s.OriginalText, 60))).
		Validate(validateInstruction).
		Value(&instruction).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errCancelled
		}
		return "", fmt.Errorf("form: %w", err)
	}
	return instruction, nil
}

func validateInstruction(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("instruction is required")
	}
	return nil
}

func preview(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
