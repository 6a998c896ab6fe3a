package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/a-h/gymassistant/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

func newTestModel(t *testing.T) (model, chan models.ChatRequest) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	toLLM := make(chan models.ChatRequest, 1)
	return newModel(ctx, toLLM, make(chan tea.Msg), make(chan error)), toLLM
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	um, ok := updated.(model)
	if !ok {
		t.Fatalf("expected model, got %T", updated)
	}
	return um, cmd
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestChatEmptyQuestion(t *testing.T) {
	m, toLLM := newTestModel(t)
	m, cmd := update(t, m, enter)
	if m.warning != "Please enter a question first." {
		t.Errorf("unexpected warning %q", m.warning)
	}
	if cmd != nil {
		t.Error("expected no command for an empty question")
	}
	if len(toLLM) != 0 {
		t.Error("expected nothing to be sent")
	}
}

func TestChatToneCycles(t *testing.T) {
	m, _ := newTestModel(t)
	var seen []string
	for range len(tones) + 1 {
		seen = append(seen, tones[m.tone])
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	}
	expected := []string{"friendly", "motivational", "sarcastic", "formal", "casual", "friendly"}
	if diff := cmp.Diff(expected, seen); diff != "" {
		t.Error(diff)
	}
}

func TestChatSubmitAndStream(t *testing.T) {
	m, toLLM := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "Give me a workout")
	m, cmd := update(t, m, enter)
	if cmd == nil {
		t.Fatal("expected a command to send the question")
	}
	cmd()
	select {
	case req := <-toLLM:
		expected := models.ChatRequest{UserMessage: "Give me a workout", Tone: "motivational"}
		if diff := cmp.Diff(expected, req); diff != "" {
			t.Error(diff)
		}
	default:
		t.Fatal("expected the question to be sent")
	}
	if !m.waiting {
		t.Error("expected the model to be waiting for an answer")
	}
	if m.textarea.Value() != "" {
		t.Errorf("expected the input to be cleared, got %q", m.textarea.Value())
	}

	t.Run("a second question is refused while waiting", func(t *testing.T) {
		m := typeText(t, m, "Another")
		m, cmd := update(t, m, enter)
		if cmd != nil {
			t.Error("expected no command while waiting")
		}
		if m.warning != "Please wait for the current answer." {
			t.Errorf("unexpected warning %q", m.warning)
		}
	})

	for _, f := range []string{"Do ", "10 ", "**pushups**."} {
		m, _ = update(t, m, fragmentMsg(f))
	}
	if actual := m.exchanges[0].answer.Text(); actual != "Do 10 **pushups**." {
		t.Errorf("unexpected answer text %q", actual)
	}
	if !strings.Contains(m.render(), "pushups") {
		t.Error("expected the answer to be rendered")
	}
	m, _ = update(t, m, answerDoneMsg{})
	if m.waiting {
		t.Error("expected waiting to end when the answer is complete")
	}
}

func TestChatErrorBanner(t *testing.T) {
	m, _ := newTestModel(t)
	m.waiting = true
	m, _ = update(t, m, errors.New("connection refused"))
	if m.waiting {
		t.Error("expected waiting to end after an error")
	}
	if !strings.Contains(m.status(), "connection refused") {
		t.Errorf("expected the error to be shown, got %q", m.status())
	}

	// The next key dismisses the banner and is not typed into the input.
	m = typeText(t, m, "x")
	if m.err != nil {
		t.Error("expected the error to be dismissed")
	}
	if m.textarea.Value() != "" {
		t.Errorf("expected the dismissing key to be swallowed, got %q", m.textarea.Value())
	}
}
