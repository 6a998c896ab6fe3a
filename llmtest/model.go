// Package llmtest provides an in-memory llms.Model for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Model replies with canned chunks. Respond, if set, decides the chunks for
// each call from the human message content.
type Model struct {
	Chunks  []string
	Respond func(prompt string) ([]string, error)
	// FailAfter, if non-nil, is returned after the chunks have been streamed.
	FailAfter error

	mu    sync.Mutex
	calls []Call
}

// Call records what a single GenerateContent invocation received.
type Call struct {
	Messages    []llms.MessageContent
	Temperature float64
	Streaming   bool
}

func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Model) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.mu.Lock()
	m.calls = append(m.calls, Call{
		Messages:    messages,
		Temperature: opts.Temperature,
		Streaming:   opts.StreamingFunc != nil,
	})
	m.mu.Unlock()

	chunks := m.Chunks
	if m.Respond != nil {
		var err error
		if chunks, err = m.Respond(HumanText(messages)); err != nil {
			return nil, err
		}
	}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.StreamingFunc != nil {
			if err := opts.StreamingFunc(ctx, []byte(chunk)); err != nil {
				return nil, err
			}
		}
	}
	if m.FailAfter != nil {
		return nil, m.FailAfter
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: strings.Join(chunks, "")},
		},
	}, nil
}

func (m *Model) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// HumanText returns the text of the last human message.
func HumanText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		var sb strings.Builder
		for _, part := range messages[i].Parts {
			if tc, ok := part.(llms.TextContent); ok {
				sb.WriteString(tc.Text)
			}
		}
		return sb.String()
	}
	return ""
}
