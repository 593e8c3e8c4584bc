package generate

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_5)

// Options are the settings shared by the hosted providers.
type Options struct {
	Model     string
	MaxTokens int
	System    string
	Prompt    Prompt
	Logger    zerolog.Logger
}

// Anthropic streams replacements from the Messages API.
type Anthropic struct {
	client anthropic.Client
	opts   Options
}

// NewAnthropic creates a provider authenticated with apiKey.
func NewAnthropic(apiKey string, opts Options) (*Anthropic, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultAnthropicModel
	}
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts,
	}, nil
}

func (a *Anthropic) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt, err := a.opts.Prompt.Render(req)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.opts.Model),
		MaxTokens: int64(a.opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if a.opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.opts.System}}
	}

	a.opts.Logger.Debug().Str("model", a.opts.Model).Msg("anthropic stream start")
	stream := a.client.Messages.NewStreaming(ctx, params)

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			if !send(ctx, ch, Chunk{Text: text.Text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, ch, Chunk{Err: err})
		}
	}()
	return ch, nil
}
