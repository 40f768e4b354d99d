package render

import (
	"github.com/charmbracelet/glamour"
)

// noMarginStyle is a JSON style that removes document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// DefaultWidth is the word wrap width used when the terminal width is unknown.
const DefaultWidth = 100

// Markdown wraps glamour with specforge's configuration.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a markdown renderer with the given width and style.
// style is a glamour style name such as "dark", "light" or "notty";
// it defaults to "dark". A named style avoids the terminal background
// query that WithAutoStyle performs.
func NewMarkdown(width int, style string) (*Markdown, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Markdown{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (m *Markdown) Width() int {
	return m.width
}

// Render transforms markdown to styled terminal output.
func (m *Markdown) Render(markdown string) (string, error) {
	return m.renderer.Render(markdown)
}
