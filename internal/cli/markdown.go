package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown for the terminal. style is a glamour
// standard style name ("dark", "light", "notty", ...); empty picks one from
// the terminal background.
func RenderMarkdown(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := renderer.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
