// Package params coerces loosely typed JSON conversion parameters into the
// flat string map the conversion service accepts.
//
// Every JSON value is first classified into a Value of one Kind, and the
// coercion from Value to string is a total function over that Kind:
//
//	string  -> unchanged
//	number  -> raw JSON text as received (no float round-trip)
//	boolean -> "true" / "false"
//	null    -> ""
//	array   -> elements coerced (strings unescaped, all else raw) joined with ","
//	object  -> raw JSON text, unmodified
package params

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"convertmcp/internal/jsonx"
)

// Kind identifies which JSON value variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ErrInvalidJSON is returned when raw input is not a single valid JSON value.
var ErrInvalidJSON = errors.New("invalid JSON value")

// Value is one JSON value tagged with its kind. The raw text is kept exactly
// as received (minus surrounding whitespace) so numbers and objects render
// without loss.
type Value struct {
	kind Kind
	raw  []byte
}

// Parse classifies a single JSON value.
func Parse(raw []byte) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !jsonx.Valid(trimmed) {
		return Value{}, ErrInvalidJSON
	}

	var kind Kind
	switch c := trimmed[0]; {
	case c == '"':
		kind = KindString
	case c == '{':
		kind = KindObject
	case c == '[':
		kind = KindArray
	case c == 't' || c == 'f':
		kind = KindBool
	case c == 'n':
		kind = KindNull
	case c == '-' || (c >= '0' && c <= '9'):
		kind = KindNumber
	default:
		return Value{}, ErrInvalidJSON
	}
	return Value{kind: kind, raw: trimmed}, nil
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// Raw returns the JSON text of v as received.
func (v Value) Raw() string {
	return string(v.raw)
}

// String applies the coercion table. It never fails: a Value can only be
// built from valid JSON by Parse.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return unquote(v.raw)
	case KindNumber:
		return string(v.raw)
	case KindBool:
		if bytes.Equal(v.raw, []byte("true")) {
			return "true"
		}
		return "false"
	case KindNull:
		return ""
	case KindArray:
		return joinArray(v.raw)
	case KindObject:
		return string(v.raw)
	default:
		return ""
	}
}

func unquote(raw []byte) string {
	var s string
	if err := jsonx.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func joinArray(raw []byte) string {
	var elems []jsonx.RawMessage
	if err := jsonx.Unmarshal(raw, &elems); err != nil {
		return string(raw)
	}
	parts := make([]string, 0, len(elems))
	for _, elem := range elems {
		trimmed := bytes.TrimSpace(elem)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			parts = append(parts, unquote(trimmed))
			continue
		}
		parts = append(parts, string(trimmed))
	}
	return strings.Join(parts, ",")
}
