// Package prompts builds the image-to-JSON extraction prompts.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"text/template"
)

// Templates holds the bundled prompt templates.
//
//go:embed templates/*.txt
var Templates embed.FS

// PromptVariant selects how much the model may add beyond the image.
type PromptVariant string

const (
	// PromptStrict only transcribes what is visible.
	PromptStrict PromptVariant = "strict"
	// PromptAssisted may also solve the question when the answer is missing.
	PromptAssisted PromptVariant = "assisted"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptAssisted: true,
}

var (
	loadOnce         sync.Once
	loadErr          error
	extractTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// ExtractData holds template data for extraction prompts.
type ExtractData struct {
	Schema string
}

// Load parses the prompt templates from fsys once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		extractTemplates = make(map[PromptVariant]*template.Template)
		for v := range validVariants {
			name := "templates/extract_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New("extract").Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			extractTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildExtractPrompt renders the extraction prompt for a JSON schema.
func BuildExtractPrompt(variant PromptVariant, schema map[string]any) (string, error) {
	if extractTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := extractTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	pretty, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ExtractData{Schema: string(pretty)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
