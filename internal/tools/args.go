package tools

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"convertmcp/internal/jsonx"
	"convertmcp/internal/params"
)

// DecodeArguments splits a raw arguments object by key. Absent or null input
// yields empty arguments.
func DecodeArguments(raw []byte) (Arguments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Arguments{}, nil
	}
	var args Arguments
	if err := jsonx.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	if args == nil {
		args = Arguments{}
	}
	return args, nil
}

func isAbsent(raw jsonx.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// String returns the string argument key. Absent or null yields "".
func (a Arguments) String(key string) (string, error) {
	raw, ok := a[key]
	if !ok || isAbsent(raw) {
		return "", nil
	}
	var s string
	if err := jsonx.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// StringList returns the list argument key. A single string is accepted as a
// one-element list.
func (a Arguments) StringList(key string) ([]string, error) {
	raw, ok := a[key]
	if !ok || isAbsent(raw) {
		return nil, nil
	}
	var list []string
	if err := jsonx.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := jsonx.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	return nil, fmt.Errorf("%s must be an array of strings", key)
}

// Parameters normalizes a loosely typed parameter object into strings. An
// object encoded inside a JSON string is repaired and parsed first, since
// clients often stringify nested arguments.
func (a Arguments) Parameters(key string) (map[string]string, error) {
	raw, ok := a[key]
	if !ok || isAbsent(raw) {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var text string
		if err := jsonx.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("%s must be an object", key)
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return nil, fmt.Errorf("%s must be an object: %w", key, err)
		}
		trimmed = []byte(repaired)
	}

	out, err := params.Normalize(trimmed)
	if err != nil {
		if errors.Is(err, params.ErrNotObject) {
			return nil, fmt.Errorf("%s must be an object", key)
		}
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return out, nil
}
