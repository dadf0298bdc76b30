package tui

import (
	"github.com/charmbracelet/glamour"
)

// Render turns markdown into terminal output.
type Render func(markdown string) (string, error)

// NewRenderer returns a Render backed by glamour, adapting to the terminal background.
// When glamour cannot be initialised the markdown is returned unchanged.
func NewRenderer() Render {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain is a Render that leaves markdown untouched, for pipes and tests.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
