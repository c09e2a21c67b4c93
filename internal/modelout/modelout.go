// Package modelout extracts structured data from free-form model text.
// Model output is untrusted: it arrives wrapped in prose, with trailing
// commas, single quotes, or raw newlines inside strings. Extraction finds
// the first bracket-delimited JSON value, parses strictly, and retries once
// after a bounded set of textual repairs.
package modelout

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrMalformed = errors.New("no valid JSON found in model output")

var (
	arrayRe         = regexp.MustCompile(`(?s)\[.*\]`)
	objectRe        = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// Array pulls the first JSON array out of raw. A successfully parsed but
// empty array is treated as malformed, matching the callers' expectation
// that generation always yields at least one record.
func Array(raw string) ([]any, error) {
	candidate := raw
	if m := arrayRe.FindString(raw); m != "" {
		candidate = m
	} else {
		candidate = strings.TrimSpace(candidate)
	}

	var parsed []any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil && len(parsed) > 0 {
		return parsed, nil
	}

	if err := json.Unmarshal([]byte(repair(candidate)), &parsed); err != nil || len(parsed) == 0 {
		return nil, ErrMalformed
	}
	return parsed, nil
}

// Object pulls the first JSON object out of raw.
func Object(raw string) (map[string]any, error) {
	candidate := raw
	if m := objectRe.FindString(raw); m != "" {
		candidate = m
	} else {
		candidate = strings.TrimSpace(candidate)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed, nil
	}

	if err := json.Unmarshal([]byte(repair(candidate)), &parsed); err != nil {
		return nil, ErrMalformed
	}
	return parsed, nil
}

// repair applies the fixed set of textual fixes for common model JSON
// defects. It runs at most once per extraction.
func repair(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "'", `"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// Str coerces a field from a parsed tree, returning "" when absent or not a
// string. Never trust field presence or type.
func Str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Bool coerces a field, returning false when absent or not a bool.
func Bool(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

// Int coerces a numeric field, returning def when absent or not a number.
// JSON numbers decode as float64.
func Int(m map[string]any, key string, def int) int {
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return def
}

// AsObject coerces an array element into an object, returning an empty map
// for anything else.
func AsObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
