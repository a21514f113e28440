package ai

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoPayload is returned when a model response carries no JSON object.
var ErrNoPayload = errors.New("no json object in response")

// ExtractObject returns the first JSON object in a model response, in document
// order. Code fences need no special handling: their content is scanned like prose.
func ExtractObject(raw string) (map[string]any, error) {
	if obj, ok := firstObject(strings.TrimSpace(raw)); ok {
		return obj, nil
	}
	return nil, ErrNoPayload
}

func firstObject(s string) (map[string]any, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(bytes)
	}
}

// coerceStrings accepts a list of strings or a single string and drops blanks.
func coerceStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := coerceString(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
