// Package outparse turns raw completion text into validated structures.
// Model output is routinely wrapped in a markdown code fence and is sometimes
// slightly malformed JSON; this package strips the fence, repairs the JSON
// when plain decoding fails, and enforces required keys.
package outparse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// MissingKeysError reports required keys absent from a parsed object.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("parsed object missing required keys: %s", strings.Join(e.Keys, ", "))
}

// StripFences removes a surrounding markdown code fence (``` or ```json)
// from s, if present. Text outside the fence is discarded.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	rest := trimmed[start+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// unmarshalLenient decodes raw into v, falling back to jsonrepair when the
// text is not valid JSON as-is.
func unmarshalLenient(raw string, v any) error {
	raw = StripFences(raw)
	if raw == "" {
		return fmt.Errorf("empty response text")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return fmt.Errorf("invalid JSON (repair also failed: %v): %w", repairErr, err)
		}
		if err := json.Unmarshal([]byte(repaired), v); err != nil {
			return fmt.Errorf("invalid JSON after repair: %w", err)
		}
	}
	return nil
}

// Object parses raw as a single JSON object and verifies the required keys
// are present.
func Object(raw string, required ...string) (map[string]any, error) {
	var obj map[string]any
	if err := unmarshalLenient(raw, &obj); err != nil {
		return nil, err
	}
	if err := checkKeys(obj, required); err != nil {
		return nil, err
	}
	return obj, nil
}

// Array parses raw as a JSON array of objects. A top-level non-array is an
// error; item validation is the caller's concern (see DecodeItem).
func Array(raw string) ([]map[string]any, error) {
	var top any
	if err := unmarshalLenient(raw, &top); err != nil {
		return nil, err
	}
	items, ok := top.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON array, got %T", top)
	}
	out := make([]map[string]any, 0, len(items))
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("array item %d: expected an object, got %T", i, it)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Decode parses raw as a JSON object, verifies required keys, and decodes it
// into T via its json tags.
func Decode[T any](raw string, required ...string) (T, error) {
	var zero T
	obj, err := Object(raw, required...)
	if err != nil {
		return zero, err
	}
	return DecodeItem[T](obj)
}

// DecodeItem decodes an already-parsed object into T, verifying required
// keys first.
func DecodeItem[T any](obj map[string]any, required ...string) (T, error) {
	var out T
	if err := checkKeys(obj, required); err != nil {
		return out, err
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return out, fmt.Errorf("re-marshal object: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode into %T: %w", out, err)
	}
	return out, nil
}

func checkKeys(obj map[string]any, required []string) error {
	var missing []string
	for _, k := range required {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}
	return nil
}
