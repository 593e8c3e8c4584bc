// Package tmpl renders the prompt templates sent to text generators.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// fence wraps s in a markdown code fence long enough that s cannot close it.
func fence(s string) string {
	ticks := "```"
	for strings.Contains(s, ticks) {
		ticks += "`"
	}
	return ticks + "\n" + s + "\n" + ticks
}

// indent prefixes every line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

func stringOrDefault(def, s string) string {
	if s != "" {
		return s
	}
	return def
}

var funcs = template.FuncMap{
	"join":    strings.Join,
	"trim":    strings.TrimSpace,
	"fence":   fence,
	"indent":  indent,
	"default": stringOrDefault,
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - fence: Wrap text in a markdown code fence
//   - indent: Indent every line (e.g., indent 2 .Context)
//   - trim: Trim surrounding whitespace
//   - default: Fallback for empty strings (e.g., default "none" .Context)
//   - join: Join string slice with separator (e.g., join .Args " ")
func Render(tmpl string, data any) (string, error) {
	t, err := Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// Parse compiles tmpl without executing it. Config validation uses it to
// report syntax errors early.
func Parse(tmpl string) (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}
