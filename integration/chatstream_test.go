package integration

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/a-h/gymassistant/models"
	"github.com/a-h/jsonapi"
)

func TestChatStreamPost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	buf := new(bytes.Buffer)
	var chunks int
	f := func(ctx context.Context, chunk []byte) (err error) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		chunks++
		_, err = buf.Write(chunk)
		return err
	}
	err := newClient().ChatStreamPost(context.Background(), models.ChatRequest{
		UserMessage: "Suggest one warm up exercise.",
		Tone:        "friendly",
	}, f)
	if err != nil {
		t.Fatalf("failed to post chat: %v", err)
	}
	if chunks == 0 || strings.TrimSpace(buf.String()) == "" {
		t.Errorf("expected a streamed answer, got %d chunks: %q", chunks, buf.String())
	}
}

func TestChatStreamPostValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	err := newClient().ChatStreamPost(context.Background(), models.ChatRequest{
		Tone: "friendly",
	}, func(ctx context.Context, chunk []byte) error { return nil })
	var ise jsonapi.InvalidStatusError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidStatusError, got %v", err)
	}
	if ise.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", ise.Status)
	}
}
