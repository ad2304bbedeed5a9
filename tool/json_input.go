package tool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/titanous/json5"

	"github.com/hupe1980/tourmesh/internal/util"
)

// ErrNotAnObject is returned when structured input is not a single JSON object.
var ErrNotAnObject = errors.New("input must be a single JSON object")

// DecodeObject parses model-written action input as one JSON object and
// validates it against schema (nil skips validation).
//
// Models routinely emit relaxed JSON, so the input is decoded with json5:
// single quotes, unquoted keys and trailing commas are accepted. Markdown code
// fences around the object are removed. Arrays are rejected.
func DecodeObject(input string, schema map[string]any) (map[string]any, error) {
	raw := stripCodeFence(strings.TrimSpace(input))
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrNotAnObject
	}

	var obj map[string]any
	if err := json5.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if schema != nil {
		if err := util.ValidateParameters(obj, schema); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop language hint
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
