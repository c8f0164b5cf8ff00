package results

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// FormatAccuracy renders a percentage with one decimal.
func FormatAccuracy(accuracy float64) string {
	return fmt.Sprintf("%.1f%%", accuracy)
}

// FormatTime renders seconds as "45.2s" or "2m 5.0s".
func FormatTime(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := math.Floor(seconds / 60)
	return fmt.Sprintf("%dm %.1fs", int(minutes), seconds-minutes*60)
}

// FormatScore renders "score/total".
func FormatScore(score, total float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "/" + strconv.FormatFloat(total, 'f', -1, 64)
}

// FormatDate renders an entry date like "Jan 2, 2006, 03:04 PM". Dates
// that do not parse are returned as is.
func FormatDate(e Entry) string {
	t, ok := e.ParsedDate()
	if !ok {
		return e.Date
	}
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// AccuracyBand groups accuracy for colouring: high, medium or low.
func AccuracyBand(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return "high"
	case accuracy >= 70:
		return "medium"
	default:
		return "low"
	}
}

// AccuracyColor returns the bar colour for an accuracy band.
func AccuracyColor(accuracy float64) string {
	switch AccuracyBand(accuracy) {
	case "high":
		return "#0677C9"
	case "medium":
		return "#5a9bd4"
	default:
		return "#8bb3d9"
	}
}

var providerNames = map[string]string{
	"openai":    "OpenAI",
	"anthropic": "Anthropic",
	"google":    "Google",
	"meta":      "Meta",
	"microsoft": "Microsoft",
	"cohere":    "Cohere",
	"mistral":   "Mistral",
}

// ProviderDisplayName maps a provider id to its brand name.
func ProviderDisplayName(provider string) string {
	if name, ok := providerNames[strings.ToLower(provider)]; ok {
		return name
	}
	return provider
}

// Pretty indents a JSON document for display.
func Pretty(raw json.RawMessage) (string, error) {
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FindQuestion returns the first object in a result document whose "id"
// or "question_id" equals id.
func FindQuestion(raw json.RawMessage, id string) (any, bool) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return findByID(doc, id)
}

func findByID(v any, id string) (any, bool) {
	switch t := v.(type) {
	case map[string]any:
		for _, key := range []string{"id", "question_id"} {
			if idValue(t[key]) == id {
				return t, true
			}
		}
		for _, key := range slices.Sorted(maps.Keys(t)) {
			if found, ok := findByID(t[key], id); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range t {
			if found, ok := findByID(child, id); ok {
				return found, true
			}
		}
	}
	return nil, false
}

func idValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return "\x00"
}
