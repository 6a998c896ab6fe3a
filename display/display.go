// Package display turns model output into markup for the chat clients.
package display

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

// Theme decides how emphasis, headings and line breaks are shown.
type Theme struct {
	Bold     func(s string) string
	Heading  func(s string) string
	Break    string
	Escape   func(s string) string
	Sanitize func(s string) string
}

var htmlPolicy = bluemonday.UGCPolicy()

// HTML renders to an HTML fragment. Model output is escaped before markup
// is added, and the result is sanitised.
var HTML = Theme{
	Bold:     func(s string) string { return "<strong>" + s + "</strong>" },
	Heading:  func(s string) string { return "<h4>" + s + "</h4>" },
	Break:    "<br>",
	Escape:   htmlEscaper.Replace,
	Sanitize: htmlPolicy.Sanitize,
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var (
	boldStyle    = lipgloss.NewStyle().Bold(true)
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#bd93f9"))
)

// Terminal renders with ANSI styles for the TUI and batch output.
var Terminal = Theme{
	Bold:    func(s string) string { return boldStyle.Render(s) },
	Heading: func(s string) string { return headingStyle.Render(s) + "\n" },
	Break:   "\n",
}

var (
	headingPattern    = regexp.MustCompile(`(?m)^### (.*)\n`)
	doubleStarPattern = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	singleStarPattern = regexp.MustCompile(`\*([^*\n]+?)\*`)
)

// Format converts lightweight markdown (bold stars, ### headings, newlines)
// into the theme's markup.
func (t Theme) Format(raw string) string {
	s := raw
	if t.Escape != nil {
		s = t.Escape(s)
	}
	// A heading only counts once its line is complete, and it consumes its
	// own newline so no break follows it.
	s = headingPattern.ReplaceAllStringFunc(s, func(m string) string {
		return t.Heading(headingPattern.FindStringSubmatch(m)[1])
	})
	s = doubleStarPattern.ReplaceAllStringFunc(s, func(m string) string {
		return t.Bold(doubleStarPattern.FindStringSubmatch(m)[1])
	})
	s = singleStarPattern.ReplaceAllStringFunc(s, func(m string) string {
		return t.Bold(singleStarPattern.FindStringSubmatch(m)[1])
	})
	s = strings.ReplaceAll(s, "\n", t.Break)
	s = strings.TrimSpace(s)
	if t.Sanitize != nil {
		s = t.Sanitize(s)
	}
	return s
}

// Buffer accumulates streamed fragments and re-renders the whole text on
// each call to Render.
type Buffer struct {
	theme Theme
	text  string
}

func NewBuffer(theme Theme) *Buffer {
	return &Buffer{theme: theme}
}

func (b *Buffer) Append(fragment string) {
	b.text += fragment
}

func (b *Buffer) Text() string {
	return b.text
}

func (b *Buffer) Render() string {
	return b.theme.Format(b.text)
}

func (b *Buffer) Reset() {
	b.text = ""
}
