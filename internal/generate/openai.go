package generate

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = string(openai.ChatModelGPT4o)

// OpenAI streams replacements from the Chat Completions API.
type OpenAI struct {
	client openai.Client
	opts   Options
}

// NewOpenAI creates a provider authenticated with apiKey.
func NewOpenAI(apiKey string, opts Options) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if opts.Model == "" {
		opts.Model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		opts:   opts,
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	prompt, err := o.opts.Prompt.Render(req)
	if err != nil {
		return nil, err
	}

	var msgs []openai.ChatCompletionMessageParamUnion
	if o.opts.System != "" {
		msgs = append(msgs, openai.SystemMessage(o.opts.System))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	o.opts.Logger.Debug().Str("model", o.opts.Model).Msg("openai stream start")
	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(o.opts.Model),
		Messages:  msgs,
		MaxTokens: openai.Int(int64(o.opts.MaxTokens)),
	})

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			if !send(ctx, ch, Chunk{Text: text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, ch, Chunk{Err: err})
		}
	}()
	return ch, nil
}
