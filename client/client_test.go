package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/gymassistant/models"
	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"
)

func TestChatStreamPost(t *testing.T) {
	var received models.ChatRequest
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/stream" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		for _, s := range []string{"Do ", "10 ", "pushups."} {
			_, _ = w.Write([]byte(s))
			w.(http.Flusher).Flush()
		}
	}))
	defer s.Close()

	var sb strings.Builder
	f := func(ctx context.Context, chunk []byte) error {
		sb.Write(chunk)
		return nil
	}
	req := models.ChatRequest{UserMessage: "Give me a workout", Tone: "motivational"}
	if err := New(s.URL).ChatStreamPost(context.Background(), req, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(req, received); diff != "" {
		t.Errorf("request: %s", diff)
	}
	if sb.String() != "Do 10 pushups." {
		t.Errorf("expected streamed body, got %q", sb.String())
	}
}

func TestChatStreamPostErrors(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "failed to generate content", http.StatusInternalServerError)
	}))
	defer s.Close()

	t.Run("non-2xx status codes are returned as errors", func(t *testing.T) {
		err := New(s.URL).ChatStreamPost(context.Background(), models.ChatRequest{}, func(ctx context.Context, chunk []byte) error {
			t.Error("unexpected chunk")
			return nil
		})
		var ise jsonapi.InvalidStatusError
		if !errors.As(err, &ise) {
			t.Fatalf("expected InvalidStatusError, got %v", err)
		}
		if ise.Status != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", ise.Status)
		}
	})
	t.Run("callback errors stop the stream", func(t *testing.T) {
		ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("chunk"))
		}))
		defer ok.Close()
		stop := errors.New("stop")
		err := New(ok.URL).ChatStreamPost(context.Background(), models.ChatRequest{}, func(ctx context.Context, chunk []byte) error {
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("expected callback error, got %v", err)
		}
	})
	t.Run("invalid base URLs are rejected", func(t *testing.T) {
		err := New("localhost:8000").ChatStreamPost(context.Background(), models.ChatRequest{}, nil)
		if err == nil {
			t.Error("expected error for URL without scheme")
		}
	})
}

func TestChatBatchPost(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/batch" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req models.BatchChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var resp models.BatchChatResponse
		for _, p := range req.Prompts {
			resp.Responses = append(resp.Responses, p.Tone+": "+p.UserMessage)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer s.Close()

	resp, err := New(s.URL).ChatBatchPost(context.Background(), models.BatchChatRequest{
		Prompts: []models.ChatRequest{
			{UserMessage: "What is protein?", Tone: "friendly"},
			{UserMessage: "Is cardio overrated?", Tone: "sarcastic"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"friendly: What is protein?", "sarcastic: Is cardio overrated?"}
	if diff := cmp.Diff(expected, resp.Responses); diff != "" {
		t.Error(diff)
	}
}
