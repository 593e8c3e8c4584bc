package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini streams replacements from the Gemini API.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewGemini creates a provider authenticated with apiKey. Close releases
// the underlying connection.
func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, opts: opts}, nil
}

// Close releases the client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt, err := g.opts.Prompt.Render(req)
	if err != nil {
		return nil, err
	}

	model := g.client.GenerativeModel(g.opts.Model)
	model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
	if g.opts.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(g.opts.System))
	}

	g.opts.Logger.Debug().Str("model", g.opts.Model).Msg("gemini stream start")
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, ch, Chunk{Err: err})
				return
			}
			if text := responseText(resp); text != "" {
				if !send(ctx, ch, Chunk{Text: text}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out += string(t)
			}
		}
		break
	}
	return out
}
