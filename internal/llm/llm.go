package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/exambuilder/internal/llm/prompts"
)

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// Extraction is the outcome of one image-to-JSON call.
type Extraction struct {
	Prompt     string         `json:"prompt"`
	ImageURL   string         `json:"image_url"`
	JSONSchema map[string]any `json:"json_schema"`
	ResultJSON any            `json:"result_json"`
	ModelUsed  string         `json:"model_used"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, variant prompts.PromptVariant) (*Client, error) {
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model {
			return nil
		}
	}
	slog.Warn("model not listed by endpoint", "model", c.model, "available", len(models.Models))
	return nil
}

// ExtractJSON sends an extracted question image with a JSON schema to the
// model and returns the schema-conforming result. imageURL is echoed back
// in the result; image holds the PNG bytes.
func (c *Client) ExtractJSON(ctx context.Context, imageURL string, image []byte, schema map[string]any) (*Extraction, error) {
	prompt, err := prompts.BuildExtractPrompt(c.variant, schema)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(image),
					Detail: openai.ImageURLDetailHigh,
				}},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	result, err := Conform(raw, schema)
	if err != nil {
		return nil, err
	}
	return &Extraction{
		Prompt:     prompt,
		ImageURL:   imageURL,
		JSONSchema: schema,
		ResultJSON: result,
		ModelUsed:  c.model,
	}, nil
}

// Conform parses a model reply and shapes it to the schema: unknown keys
// are dropped, required fields filled, the question type forced to the
// schema's first enum value, and the result validated.
func Conform(raw string, schema map[string]any) (any, error) {
	cleaned := StripCodeFence(raw)
	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	result := FillMissing(FilterToSchema(parsed, schema), schema)
	ForceQuestionType(result, schema)
	if err := Validate(result, schema); err != nil {
		return nil, fmt.Errorf("validate LLM response: %w", err)
	}
	return result, nil
}

// StripCodeFence removes a surrounding markdown code block.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
