package jsonx

import "github.com/goccy/go-json"

// Thin wrapper so the codec can be swapped in one place.
var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
	Unmarshal     = json.Unmarshal
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
	Valid         = json.Valid
	Compact       = json.Compact
)

type RawMessage = json.RawMessage
