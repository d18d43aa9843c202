package params

import (
	"errors"
	"fmt"

	"convertmcp/internal/jsonx"
)

// ErrNotObject is returned when the top-level parameters value is not a JSON object.
var ErrNotObject = errors.New("parameters must be a JSON object")

// Normalize coerces a JSON object into a string-keyed string map.
//
// An empty object yields an empty map. Any other top-level kind fails with
// ErrNotObject. Blank keys are kept; dropping them is the caller's decision.
// When a key repeats, the later value wins.
func Normalize(raw []byte) (map[string]string, error) {
	top, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if top.Kind() != KindObject {
		return nil, fmt.Errorf("%w, got %s", ErrNotObject, top.Kind())
	}

	var fields map[string]jsonx.RawMessage
	if err := jsonx.Unmarshal(top.raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return NormalizeFields(fields)
}

// NormalizeFields coerces values that were already split by key.
// Each value is coerced independently of every other key.
func NormalizeFields(fields map[string]jsonx.RawMessage) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for key, raw := range fields {
		value, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		out[key] = value.String()
	}
	return out, nil
}
