package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"flowchat/internal/logging"
)

// createMarkdownRenderer creates a markdown renderer with fallback handling
func createMarkdownRenderer(width int) *glamour.TermRenderer {
	wrap := width - 14
	if wrap < 20 {
		wrap = 20
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer with auto style: %v, trying fallback", err)

	renderer, err = glamour.NewTermRenderer(
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		return renderer
	}

	logging.Error("Failed to create markdown renderer: %v, messages will be shown as plain text", err)
	return nil
}

// renderMarkdown renders content through r, returning the literal content if
// there is no renderer or rendering fails.
func renderMarkdown(r *glamour.TermRenderer, content string) (out string) {
	if r == nil || content == "" {
		return content
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Panic in markdown rendering: %v", rec)
			out = content
		}
	}()

	rendered, err := r.Render(content)
	if err != nil {
		logging.Error("Markdown rendering error: %v, falling back to plain text", err)
		return content
	}

	return strings.Trim(rendered, "\n")
}
