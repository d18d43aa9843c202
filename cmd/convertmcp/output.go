package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

// isTTY reports whether w is an interactive terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styler applies colors only when writing to a terminal.
type styler struct {
	enabled bool
}

func newStyler(w io.Writer) styler {
	return styler{enabled: isTTY(w) && !color.NoColor}
}

func (s styler) apply(fn func(...any) string, text string) string {
	if !s.enabled {
		return text
	}
	return fn(text)
}

func (s styler) success(text string) string { return s.apply(green, text) }
func (s styler) failure(text string) string { return s.apply(red, text) }
func (s styler) accent(text string) string  { return s.apply(cyan, text) }
func (s styler) muted(text string) string   { return s.apply(gray, text) }
func (s styler) strong(text string) string  { return s.apply(bold, text) }
