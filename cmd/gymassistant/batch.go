package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"

	"github.com/a-h/gymassistant/client"
	"github.com/a-h/gymassistant/display"
	"github.com/a-h/gymassistant/models"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

type BatchCommand struct {
	ServerURL string `help:"The URL of the prompt service." env:"SERVER_URL" default:"http://localhost:8000"`
	File      string `help:"A file containing one 'question | tone' per line. Reads stdin if empty." default:""`
	Output    string `help:"The output format." enum:"text,html,yaml" default:"text"`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c BatchCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	var r io.Reader = os.Stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		r = f
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read batch: %w", err)
	}

	prompts, invalid, err := display.ParseBatch(string(text))
	if err != nil {
		return err
	}
	for _, il := range invalid {
		log.Warn(il.Error(), slog.Int("line", il.Number))
	}
	if len(prompts) == 0 {
		log.Warn("no valid questions to submit")
		return nil
	}

	log.Info("submitting batch", slog.Int("count", len(prompts)))
	resp, err := client.New(c.ServerURL).ChatBatchPost(ctx, models.BatchChatRequest{
		Prompts: prompts,
	})
	if err != nil {
		return fmt.Errorf("failed to submit batch: %w", err)
	}
	if len(resp.Responses) != len(prompts) {
		return fmt.Errorf("expected %d responses, got %d", len(prompts), len(resp.Responses))
	}
	return writeBatch(os.Stdout, c.Output, newBatchResults(prompts, resp.Responses))
}

type batchResult struct {
	Question string `yaml:"question"`
	Tone     string `yaml:"tone"`
	Response string `yaml:"response"`
}

func (br batchResult) Label(i int) string {
	return fmt.Sprintf("Q%d: %s (tone: %s)", i+1, br.Question, br.Tone)
}

func newBatchResults(prompts []models.ChatRequest, responses []string) []batchResult {
	results := make([]batchResult, len(prompts))
	for i, p := range prompts {
		results[i] = batchResult{
			Question: p.UserMessage,
			Tone:     p.Tone,
			Response: responses[i],
		}
	}
	return results
}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(Pink)

func writeBatch(w io.Writer, format string, results []batchResult) (err error) {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		return enc.Close()
	case "html":
		blocks := make([]htmlBlock, len(results))
		for i, r := range results {
			blocks[i] = htmlBlock{
				Label:    r.Label(i),
				Response: template.HTML(display.HTML.Format(r.Response)),
			}
		}
		return batchPage.Execute(w, blocks)
	case "text", "":
		for i, r := range results {
			if _, err = fmt.Fprintf(w, "%s\n%s\n\n", labelStyle.Render(r.Label(i)), display.Terminal.Format(r.Response)); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.New("unknown output format: " + format)
}

type htmlBlock struct {
	Label    string
	Response template.HTML
}

var batchPage = template.Must(template.New("batch").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Gym Assistant</title></head>
<body>
{{- range . }}
<section>
<h3>{{ .Label }}</h3>
<div>{{ .Response }}</div>
</section>
{{- end }}
</body>
</html>
`))
