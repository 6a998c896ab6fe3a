// Package completion sends rendered prompts to a chat model, either as an
// incremental stream or as a batch.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/a-h/gymassistant/tracing"
	"github.com/tmc/langchaingo/llms"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSystemPrompt     = "Be concise and direct."
	DefaultTemperature      = 0.7
	DefaultBatchConcurrency = 4
)

// Messages wraps a rendered prompt in the system and human message pair sent
// to the model.
func Messages(systemPrompt, renderedPrompt string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, renderedPrompt),
	}
}

type Option func(*Completer)

func WithSystemPrompt(s string) Option {
	return func(c *Completer) {
		c.systemPrompt = s
	}
}

func WithTemperature(t float64) Option {
	return func(c *Completer) {
		c.temperature = t
	}
}

// WithBatchConcurrency limits how many batch prompts are generated at once.
// Values below 1 are ignored.
func WithBatchConcurrency(n int) Option {
	return func(c *Completer) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

func New(llm llms.Model, opts ...Option) *Completer {
	c := &Completer{
		llm:              llm,
		systemPrompt:     DefaultSystemPrompt,
		temperature:      DefaultTemperature,
		batchConcurrency: DefaultBatchConcurrency,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Completer struct {
	llm              llms.Model
	systemPrompt     string
	temperature      float64
	batchConcurrency int
}

// Fragment is a piece of streamed model output. The last fragment of a failed
// stream has Err set and no Text.
type Fragment struct {
	Text string
	Err  error
}

// Stream starts generating a response to the prompt. Fragments are delivered
// in order on the returned channel, which is closed when the model is done.
// Cancelling ctx stops the model call; the consumer must keep reading until
// the channel is closed, or cancel ctx.
func (c *Completer) Stream(ctx context.Context, prompt string) <-chan Fragment {
	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		f := func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case fragments <- Fragment{Text: string(chunk)}:
				return nil
			}
		}
		_, err := c.llm.GenerateContent(tracing.StartRun(ctx), Messages(c.systemPrompt, prompt),
			llms.WithTemperature(c.temperature),
			llms.WithStreamingFunc(f))
		if err == nil {
			return
		}
		select {
		case <-ctx.Done():
		case fragments <- Fragment{Err: fmt.Errorf("completion: stream failed: %w", err)}:
		}
	}()
	return fragments
}

// ErrEmptyResponse is returned when the model returns no choices.
var ErrEmptyResponse = errors.New("completion: model returned no choices")

// Batch generates a response for each prompt. Responses are in the same
// order as the prompts. If any prompt fails, the whole batch fails.
func (c *Completer) Batch(ctx context.Context, prompts []string) (responses []string, err error) {
	responses = make([]string, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchConcurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			resp, err := c.llm.GenerateContent(tracing.StartRun(ctx), Messages(c.systemPrompt, prompt),
				llms.WithTemperature(c.temperature))
			if err != nil {
				return fmt.Errorf("completion: prompt %d failed: %w", i, err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion: prompt %d failed: %w", i, ErrEmptyResponse)
			}
			responses[i] = resp.Choices[0].Content
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}
