package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/a-h/gymassistant/client"
	"github.com/a-h/gymassistant/display"
	"github.com/a-h/gymassistant/models"
)

type AskCommand struct {
	ServerURL string `help:"The URL of the prompt service." env:"SERVER_URL" default:"http://localhost:8000"`
	Tone      string `help:"The tone of the answer." enum:"friendly,motivational,sarcastic,formal,casual" default:"friendly"`
	Format    bool   `help:"Render bold text and headings once the answer is complete, instead of streaming raw text."`
	Question  string `arg:"" help:"The question to ask."`
}

func (c AskCommand) Run(ctx context.Context) (err error) {
	if strings.TrimSpace(c.Question) == "" {
		return errors.New("please enter a question first")
	}
	rsc := client.New(c.ServerURL)
	buf := display.NewBuffer(display.Terminal)
	f := func(ctx context.Context, chunk []byte) error {
		if c.Format {
			buf.Append(string(chunk))
			return nil
		}
		_, err := os.Stdout.Write(chunk)
		return err
	}
	err = rsc.ChatStreamPost(ctx, models.ChatRequest{
		UserMessage: c.Question,
		Tone:        c.Tone,
	}, f)
	if err != nil {
		return fmt.Errorf("failed to ask question: %w", err)
	}
	if !c.Format {
		fmt.Println()
		return nil
	}
	fmt.Println(buf.Render())
	return nil
}
