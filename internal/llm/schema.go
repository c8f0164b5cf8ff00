package llm

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// schemaType returns the schema's "type", taking the first non-null entry
// when it is a list.
func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func subSchema(schema map[string]any, key string) map[string]any {
	m, _ := schema[key].(map[string]any)
	return m
}

func properties(schema map[string]any) map[string]any {
	m, _ := schema["properties"].(map[string]any)
	return m
}

func required(schema map[string]any) []string {
	var out []string
	list, _ := schema["required"].([]any)
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FilterToSchema drops object keys that the schema does not declare.
func FilterToSchema(data any, schema map[string]any) any {
	if schema == nil {
		return data
	}
	switch schemaType(schema) {
	case "object":
		obj, ok := data.(map[string]any)
		if !ok {
			return data
		}
		props := properties(schema)
		out := make(map[string]any, len(props))
		for k, ps := range props {
			if v, ok := obj[k]; ok {
				sub, _ := ps.(map[string]any)
				out[k] = FilterToSchema(v, sub)
			}
		}
		return out
	case "array":
		arr, ok := data.([]any)
		if !ok {
			return data
		}
		items := subSchema(schema, "items")
		out := make([]any, len(arr))
		for i, v := range arr {
			out[i] = FilterToSchema(v, items)
		}
		return out
	}
	return data
}

// FillMissing adds every missing or null required field: the schema
// default if any, else the zero value for its type.
func FillMissing(data any, schema map[string]any) any {
	if schema == nil {
		return data
	}
	switch schemaType(schema) {
	case "object":
		obj, ok := data.(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		props := properties(schema)
		for _, key := range required(schema) {
			ps, _ := props[key].(map[string]any)
			if v, ok := obj[key]; ok && v != nil {
				obj[key] = FillMissing(v, ps)
				continue
			}
			obj[key] = zeroFor(ps)
		}
		return obj
	case "array":
		arr, ok := data.([]any)
		if !ok {
			return data
		}
		items := subSchema(schema, "items")
		for i, v := range arr {
			arr[i] = FillMissing(v, items)
		}
		return arr
	}
	return data
}

func zeroFor(schema map[string]any) any {
	if d, ok := schema["default"]; ok {
		return d
	}
	if _, multi := schema["type"].([]any); multi {
		return nil
	}
	switch schemaType(schema) {
	case "string":
		return ""
	case "object":
		return FillMissing(map[string]any{}, schema)
	case "array":
		return []any{}
	case "number", "integer":
		return float64(0)
	}
	return nil
}

// ForceQuestionType sets result.question.type to the first enum value of
// the schema's question.type, when both exist.
func ForceQuestionType(result any, schema map[string]any) {
	question := subSchema(properties(schema), "question")
	typ := subSchema(properties(question), "type")
	enum, _ := typ["enum"].([]any)
	if len(enum) == 0 {
		return
	}
	obj, ok := result.(map[string]any)
	if !ok {
		return
	}
	if q, ok := obj["question"].(map[string]any); ok {
		q["type"] = enum[0]
	}
}

// Validate checks types, required fields and enums against the schema.
// It covers the keywords the question schemas use, not all of JSON Schema.
func Validate(data any, schema map[string]any) error {
	return validate(data, schema, "$")
}

func validate(data any, schema map[string]any, path string) error {
	if schema == nil {
		return nil
	}
	if enum, ok := schema["enum"].([]any); ok && !slices.ContainsFunc(enum, func(e any) bool { return equalJSON(e, data) }) {
		return fmt.Errorf("%s: value %v not in enum", path, data)
	}
	if !typeMatches(data, schema["type"]) {
		return fmt.Errorf("%s: expected %v, got %s", path, schema["type"], jsonType(data))
	}
	switch v := data.(type) {
	case map[string]any:
		for _, key := range required(schema) {
			if _, ok := v[key]; !ok {
				return fmt.Errorf("%s: missing required field %q", path, key)
			}
		}
		for k, ps := range properties(schema) {
			child, ok := v[k]
			if !ok {
				continue
			}
			sub, _ := ps.(map[string]any)
			if err := validate(child, sub, path+"."+k); err != nil {
				return err
			}
		}
	case []any:
		items := subSchema(schema, "items")
		for i, item := range v {
			if err := validate(item, items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func typeMatches(data any, t any) bool {
	switch tt := t.(type) {
	case nil:
		return true
	case string:
		return typeIs(data, tt)
	case []any:
		for _, x := range tt {
			if s, ok := x.(string); ok && typeIs(data, s) {
				return true
			}
		}
		return false
	}
	return true
}

func typeIs(data any, t string) bool {
	got := jsonType(data)
	switch t {
	case "number":
		return got == "number" || got == "integer"
	case "integer":
		return got == "integer"
	default:
		return got == t
	}
}

func jsonType(data any) string {
	switch v := data.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		if v == math.Trunc(v) {
			return "integer"
		}
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return strings.ToLower(fmt.Sprintf("%T", data))
	}
}

func equalJSON(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b) && jsonType(a) == jsonType(b)
}
