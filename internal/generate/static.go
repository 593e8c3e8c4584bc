package generate

import (
	"context"
	"strings"
	"time"
)

// Static replies with fixed text, streamed one word at a time. An empty
// Text echoes the selection back. It needs no network and is what tests
// and offline runs use.
type Static struct {
	Text  string
	Delay time.Duration // pause between chunks
}

func (s Static) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	text := s.Text
	if text == "" {
		text = req.Selection
	}

	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		for _, word := range splitWords(text) {
			if s.Delay > 0 {
				select {
				case <-time.After(s.Delay):
				case <-ctx.Done():
					return
				}
			}
			if !send(ctx, ch, Chunk{Text: word}) {
				return
			}
		}
	}()
	return ch, nil
}

// splitWords cuts s after each run of spaces so the pieces concatenate back
// to s.
func splitWords(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexAny(s, " \n")
		if i < 0 {
			out = append(out, s)
			break
		}
		j := i
		for j < len(s) && (s[j] == ' ' || s[j] == '\n') {
			j++
		}
		out = append(out, s[:j])
		s = s[j:]
	}
	return out
}
