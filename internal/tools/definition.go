// Package tools declares the callable conversion and discovery tools and
// routes calls to them.
package tools

import (
	"context"
	"errors"

	"convertmcp/internal/jsonx"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Definition is the wire description of a tool as listed to clients.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Schema is the JSON Schema of a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one argument.
type Property struct {
	Type                 string    `json:"type,omitempty"`
	Description          string    `json:"description,omitempty"`
	Items                *Property `json:"items,omitempty"`
	AdditionalProperties *Property `json:"additionalProperties,omitempty"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is what a tool call returns to the client.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// Text returns the concatenated text blocks.
func (r Result) Text() string {
	if len(r.Content) == 1 {
		return r.Content[0].Text
	}
	var out string
	for _, c := range r.Content {
		out += c.Text
	}
	return out
}

func textResult(text string, isError bool) Result {
	return Result{Content: []Content{{Type: "text", Text: text}}, IsError: isError}
}

// Arguments are the call arguments split by key, raw values untouched.
type Arguments map[string]jsonx.RawMessage

// Tool is one callable operation.
type Tool interface {
	Definition() Definition
	// ReadOnly tools have no side effects and may be cached.
	ReadOnly() bool
	Execute(ctx context.Context, args Arguments) Result
}
