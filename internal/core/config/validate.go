package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/redline/pkg/tmpl"
)

// PromptTemplateData defines the fields available to provider.prompt.
type PromptTemplateData struct {
	Selection   string // text the user selected
	Instruction string // what the user asked for
	Context     string // enclosing and neighboring block text
	Vars        map[string]any
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// template syntax, glob patterns, and file accessibility. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateRules(),
		c.validatePrompt(),
		criterio.Run("render.style", c.Render.Style, isRenderStyle),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if env := c.Provider.APIKeyEnv; env != "" && os.Getenv(env) == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Provider",
			Item:     c.Provider.Name,
			Message:  fmt.Sprintf("environment variable %s is not set", env),
		})
	}

	seen := make(map[string]int, len(c.Rules))
	for i, rule := range c.Rules {
		if prev, ok := seen[rule.Pattern]; ok {
			warnings = append(warnings, ValidationWarning{
				Category: "Rules",
				Item:     fmt.Sprintf("rule %d", i),
				Message:  fmt.Sprintf("pattern %q is shadowed by rule %d", rule.Pattern, prev),
			})
			continue
		}
		seen[rule.Pattern] = i
	}

	return warnings
}

// validateFileAccess checks config file, data directory, and provider script.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("provider.script", c.scriptPath(configPath), fileExistsIfSet),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// scriptPath resolves provider.script relative to the config file.
func (c *Config) scriptPath(configPath string) string {
	script := c.Provider.Script
	if script == "" || filepath.IsAbs(script) || configPath == "" {
		return script
	}
	return filepath.Join(filepath.Dir(configPath), script)
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func fileExistsIfSet(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

// validateRules checks rule patterns are valid doublestar globs.
func (c *Config) validateRules() error {
	var errs criterio.FieldErrorsBuilder
	for i, rule := range c.Rules {
		if !doublestar.ValidatePattern(rule.Pattern) {
			errs = errs.Append(fmt.Sprintf("rules[%d].pattern", i), fmt.Errorf("invalid glob %q", rule.Pattern))
		}
	}
	return errs.ToError()
}

// validatePrompt renders the prompt template against placeholder data so
// that unknown fields are reported as well as syntax errors.
func (c *Config) validatePrompt() error {
	_, err := tmpl.Render(c.Provider.Prompt, PromptTemplateData{
		Selection:   "selected",
		Instruction: "instruction",
		Context:     "context",
		Vars:        c.Vars,
	})
	if err != nil {
		return criterio.NewFieldErrors("provider.prompt", fmt.Errorf("template error: %w", err))
	}
	return nil
}

// isRenderStyle accepts "auto", "theme", a built-in glamour style or a
// path to a glamour style file.
func isRenderStyle(style string) error {
	switch style {
	case "", "auto", "theme":
		return nil
	}
	if _, ok := glamourstyles.DefaultStyles[style]; ok {
		return nil
	}
	if err := fileExistsIfSet(style); err != nil {
		return fmt.Errorf("not a glamour style: %s", style)
	}
	return nil
}
