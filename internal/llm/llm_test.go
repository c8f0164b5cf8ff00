package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const questionSchema = `{
  "type": "object",
  "required": ["question", "answer"],
  "properties": {
    "question": {
      "type": "object",
      "required": ["type", "stem", "choices", "points", "meta"],
      "properties": {
        "type": {"type": "string", "enum": ["multiple_choice"]},
        "stem": {"type": "string"},
        "choices": {"type": "array", "items": {"type": "string"}},
        "points": {"type": "number"},
        "difficulty": {"type": "string", "default": "medium"},
        "meta": {"type": "object", "required": ["source"], "properties": {"source": {"type": "string"}}}
      }
    },
    "answer": {"type": ["string", "null"]}
  }
}`

func loadSchema(t *testing.T) map[string]any {
	t.Helper()
	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(questionSchema), &s))
	return s
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  \n```json {\"a\":1} ```\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFilterToSchema(t *testing.T) {
	schema := loadSchema(t)
	data := map[string]any{
		"question": map[string]any{"stem": "2+2?", "confidence": 0.9},
		"answer":   "4",
		"notes":    "extra",
	}

	got := FilterToSchema(data, schema).(map[string]any)
	assert.NotContains(t, got, "notes")
	assert.Equal(t, map[string]any{"stem": "2+2?"}, got["question"])
}

func TestFillMissing(t *testing.T) {
	schema := loadSchema(t)
	data := map[string]any{"question": map[string]any{"stem": "2+2?", "points": nil}}

	got := FillMissing(data, schema).(map[string]any)
	q := got["question"].(map[string]any)
	assert.Equal(t, "", q["type"])
	assert.Equal(t, "2+2?", q["stem"])
	assert.Equal(t, []any{}, q["choices"])
	assert.Equal(t, float64(0), q["points"])
	assert.Equal(t, map[string]any{"source": ""}, q["meta"])
	assert.NotContains(t, q, "difficulty", "optional fields stay absent")
	assert.Contains(t, got, "answer")
	assert.Nil(t, got["answer"])
}

func TestConform(t *testing.T) {
	schema := loadSchema(t)
	raw := "```json\n" + `{"question": {"type": "essay", "stem": "Name a noble gas.", "choices": ["He", "O"], "points": 2, "meta": {"source": "p3"}, "junk": 1}, "answer": null}` + "\n```"

	got, err := Conform(raw, schema)
	require.NoError(t, err)
	q := got.(map[string]any)["question"].(map[string]any)
	assert.Equal(t, "multiple_choice", q["type"])
	assert.NotContains(t, q, "junk")
}

func TestConformRejectsGarbage(t *testing.T) {
	_, err := Conform("I cannot read this image.", loadSchema(t))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "raw: I cannot read"))
}

func TestValidate(t *testing.T) {
	schema := loadSchema(t)
	valid := map[string]any{
		"question": map[string]any{
			"type": "multiple_choice", "stem": "s", "choices": []any{"a"}, "points": float64(1),
			"meta": map[string]any{"source": "x"},
		},
		"answer": "a",
	}
	require.NoError(t, Validate(valid, schema))

	bad := map[string]any{
		"question": map[string]any{
			"type": "multiple_choice", "stem": "s", "choices": []any{float64(3)}, "points": float64(1),
			"meta": map[string]any{"source": "x"},
		},
		"answer": "a",
	}
	err := Validate(bad, schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.question.choices[0]")

	wrongEnum := map[string]any{"question": map[string]any{"type": "essay"}, "answer": nil}
	assert.Error(t, Validate(wrongEnum, schema))
}

func TestDataURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.True(t, strings.HasPrefix(dataURL(png), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(dataURL([]byte("text")), "data:image/png;base64,"))
}
