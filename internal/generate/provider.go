package generate

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/colonyops/redline/internal/core/config"
)

// New builds the generator named by cfg.Provider. API keys are read from
// the environment variable the config names.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Generator, error) {
	p := cfg.Provider
	opts := Options{
		Model:     p.Model,
		MaxTokens: p.MaxTokens,
		System:    p.System,
		Prompt:    Prompt{Template: p.Prompt, Vars: cfg.Vars},
		Logger:    log.With().Str("provider", p.Name).Logger(),
	}

	var (
		gen Generator
		err error
	)
	switch p.Name {
	case config.ProviderStatic:
		gen = Static{}
	case config.ProviderAnthropic:
		gen, err = unwrap(NewAnthropic(os.Getenv(p.APIKeyEnv), opts))
	case config.ProviderOpenAI:
		gen, err = unwrap(NewOpenAI(os.Getenv(p.APIKeyEnv), opts))
	case config.ProviderGemini:
		gen, err = unwrap(NewGemini(ctx, os.Getenv(p.APIKeyEnv), opts))
	case config.ProviderLua:
		gen, err = unwrap(NewLua(cfg.ScriptFile(), opts))
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, p.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", p.Name, err)
	}
	return gen, nil
}

// unwrap keeps a failed constructor's typed nil out of the interface.
func unwrap[G Generator](g G, err error) (Generator, error) {
	if err != nil {
		return nil, err
	}
	return g, nil
}
