package prompt

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/nikolalohinski/gonja"
)

//go:embed templates/base_prompt.jinja2
var defaultTemplate string

// TemplateError is returned when a prompt template can't be read or parsed.
type TemplateError struct {
	Filename string
	Err      error
}

func (e *TemplateError) Error() string {
	name := e.Filename
	if name == "" {
		name = "embedded template"
	}
	return fmt.Sprintf("prompt: template %s: %v", name, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Template renders a user message and tone into a prompt. It is loaded once
// and is safe for concurrent use.
type Template struct {
	execute func(vars map[string]any) (string, error)
}

// Load reads and parses the Jinja2 template at filename. If filename is
// empty, the embedded default template is used.
func Load(filename string) (t *Template, err error) {
	source := defaultTemplate
	if filename != "" {
		contents, err := os.ReadFile(filename)
		if err != nil {
			return nil, &TemplateError{Filename: filename, Err: err}
		}
		source = string(contents)
	}
	return Parse(filename, source)
}

// Parse parses template source. The name is used in errors only.
func Parse(name, source string) (t *Template, err error) {
	tpl, err := gonja.FromString(source)
	if err != nil {
		return nil, &TemplateError{Filename: name, Err: err}
	}
	t = &Template{
		execute: func(vars map[string]any) (string, error) {
			return tpl.Execute(vars)
		},
	}
	// Templates can parse but still fail on execution, e.g. an unknown filter.
	if _, err = t.Render("hello", "world"); err != nil {
		return nil, &TemplateError{Filename: name, Err: err}
	}
	return t, nil
}

// Render substitutes the message and tone into the template.
func (t *Template) Render(userMessage, tone string) (string, error) {
	s, err := t.execute(map[string]any{
		"user_message": userMessage,
		"tone":         tone,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: render failed: %w", err)
	}
	return s, nil
}
