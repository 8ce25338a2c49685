// Package app implements the Glowscan analysis service: AI response
// normalization, quota-gated dispatch, and the HTTP surface.
package app

import (
	"encoding/json"
	"regexp"
	"strings"
)

// The model is prompted to emit raw JSON but is observed to sometimes wrap
// it in a markdown fence. Only the first fenced json block is considered.
var reJSONFence = regexp.MustCompile("(?s)```json\n(.*?)\n```")

// Normalize converts raw model output into the analysis object. It is a
// pure text transform: a direct JSON-object parse is tried first, then the
// body of the first ```json fence. No field or shape validation happens
// here; whatever object the model produced is returned as-is. Malformed
// JSON inside a detected fence is still unparseable, with no further
// fallback.
func Normalize(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err == nil && result != nil {
		return result, nil
	}

	if m := reJSONFence.FindStringSubmatch(raw); m != nil {
		result = nil
		if err := json.Unmarshal([]byte(m[1]), &result); err == nil && result != nil {
			return result, nil
		}
	}

	return nil, unparseableError{raw: raw}
}
