package prompts

import (
	"strings"
	"testing"
)

func TestBuildExtractPrompt(t *testing.T) {
	if err := Load(Templates); err != nil {
		t.Fatalf("Load: %v", err)
	}
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"stem": map[string]any{"type": "string"}},
	}

	for _, v := range []PromptVariant{PromptStrict, PromptAssisted} {
		t.Run(string(v), func(t *testing.T) {
			got, err := BuildExtractPrompt(v, schema)
			if err != nil {
				t.Fatalf("BuildExtractPrompt: %v", err)
			}
			if !strings.Contains(got, `"stem": {`) {
				t.Errorf("prompt should contain the indented schema, got:\n%s", got)
			}
			if !strings.HasSuffix(strings.TrimSpace(got), "matches the schema structure.") {
				t.Error("prompt should end with the closing instruction")
			}
		})
	}

	if _, err := BuildExtractPrompt("creative", schema); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestIsValidVariant(t *testing.T) {
	if !IsValidVariant("strict") || !IsValidVariant("assisted") {
		t.Error("known variants should be valid")
	}
	if IsValidVariant("lenient") {
		t.Error("unknown variant should be invalid")
	}
}
