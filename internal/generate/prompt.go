package generate

import (
	"fmt"

	"github.com/colonyops/redline/internal/core/config"
	"github.com/colonyops/redline/pkg/tmpl"
)

// Prompt renders a Request into the text sent to a hosted model.
type Prompt struct {
	Template string
	Vars     map[string]any
}

// Render executes the template against req.
func (p Prompt) Render(req Request) (string, error) {
	src := p.Template
	if src == "" {
		src = config.DefaultPrompt
	}

	out, err := tmpl.Render(src, config.PromptTemplateData{
		Selection:   req.Selection,
		Instruction: req.Instruction,
		Context:     req.Context,
		Vars:        p.Vars,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}
