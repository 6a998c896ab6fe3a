package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/gymassistant/client"
	"github.com/a-h/gymassistant/display"
	"github.com/a-h/gymassistant/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var tones = []string{"friendly", "motivational", "sarcastic", "formal", "casual"}

type ChatCommand struct {
	ServerURL string `help:"The URL of the prompt service." env:"SERVER_URL" default:"http://localhost:8000"`
	Tone      string `help:"The initial tone of the answers." enum:"friendly,motivational,sarcastic,formal,casual" default:"friendly"`
}

// fragmentMsg is a piece of the answer currently being streamed.
type fragmentMsg string

// answerDoneMsg is sent once the stream for the current question ends.
type answerDoneMsg struct{}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rsc := client.New(c.ServerURL)

	toLLM := make(chan models.ChatRequest)
	fromLLM := make(chan tea.Msg)
	errors := make(chan error)

	go func() {
		for {
			var req models.ChatRequest
			select {
			case req = <-toLLM:
			case <-ctx.Done():
				return
			}
			f := func(ctx context.Context, chunk []byte) error {
				select {
				case fromLLM <- fragmentMsg(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err := rsc.ChatStreamPost(ctx, req, f); err != nil {
				select {
				case errors <- err:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case fromLLM <- answerDoneMsg{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	m := newModel(ctx, toLLM, fromLLM, errors)
	m.tone = toneIndex(c.Tone)
	p := tea.NewProgram(m)
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

func toneIndex(tone string) int {
	for i, t := range tones {
		if t == tone {
			return i
		}
	}
	return 0
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Orange      = lipgloss.Color("#ffb86c")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(2).Padding(1)

var header = `
  ___              _           _    _            _   
 / __|_  _ _ __   /_\   _____ (_)__| |_ __ _ _ _| |_ 
| (_ | || | '  \ / _ \ (_-<_-<| (_-<  _/ _' | ' \  _|
 \___|\_, |_|_|_/_/ \_\/__/__/|_/__/\__\__,_|_||_\__|
      |__/                                          
`

var (
	questionStyle = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink)
	answerStyle   = lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan)
	toneStyle     = lipgloss.NewStyle().Foreground(Comment)
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(Background).Background(Orange).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(Foreground).Background(Red).Padding(0, 1)
)

type exchange struct {
	question string
	tone     string
	answer   *display.Buffer
}

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	ctx      context.Context

	tone      int
	exchanges []exchange
	waiting   bool
	warning   string
	err       error

	// Chatbot interactions.
	toLLM   chan models.ChatRequest
	fromLLM chan tea.Msg
	errors  chan error
}

func newModel(ctx context.Context, toLLM chan models.ChatRequest, fromLLM chan tea.Msg, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Ask a fitness question..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 280

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:      ctx,
		textarea: ta,
		viewport: vp,
		fromLLM:  fromLLM,
		toLLM:    toLLM,
		errors:   errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromLLM(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToFromLLM() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromLLM:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) send(req models.ChatRequest) tea.Cmd {
	return func() tea.Msg {
		select {
		case m.toLLM <- req:
		case <-m.ctx.Done():
		}
		return nil
	}
}

func (m model) render() string {
	if len(m.exchanges) == 0 {
		return headerStyle.Render(header)
	}
	width := m.viewport.Width - 6
	if width < 20 {
		width = 20
	}
	var sb strings.Builder
	for _, e := range m.exchanges {
		sb.WriteString(questionStyle.Render(wordwrap.String("🥷 "+e.question, width)))
		sb.WriteString("\n")
		sb.WriteString(toneStyle.Render("  tone: " + e.tone))
		sb.WriteString("\n")
		if answer := e.answer.Render(); answer != "" {
			sb.WriteString(answerStyle.Render(wordwrap.String("✨ "+answer, width)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (m model) refresh() model {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
	return m
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		m.waiting = false
		return m, m.subscribeToErrors()
	case fragmentMsg:
		if len(m.exchanges) > 0 {
			m.exchanges[len(m.exchanges)-1].answer.Append(string(msg))
		}
		return m.refresh(), m.subscribeToFromLLM()
	case answerDoneMsg:
		m.waiting = false
		return m, m.subscribeToFromLLM()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 5
		m.textarea.SetWidth(msg.Width)
		return m.refresh(), nil
	case tea.KeyMsg:
		if m.err != nil {
			// The error banner must be acknowledged before anything else.
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			m.err = nil
			return m, nil
		}
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.tone = (m.tone + 1) % len(tones)
			return m, nil
		case "enter":
			v := strings.TrimSpace(m.textarea.Value())
			if v == "" {
				m.warning = "Please enter a question first."
				return m, nil
			}
			if m.waiting {
				m.warning = "Please wait for the current answer."
				return m, nil
			}
			m.warning = ""
			m.waiting = true
			m.textarea.Reset()
			m.exchanges = append(m.exchanges, exchange{
				question: v,
				tone:     tones[m.tone],
				answer:   display.NewBuffer(display.Terminal),
			})
			return m.refresh(), m.send(models.ChatRequest{
				UserMessage: v,
				Tone:        tones[m.tone],
			})
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

func (m model) status() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Request failed: %v (press any key)", m.err))
	}
	if m.warning != "" {
		return warningStyle.Render(m.warning)
	}
	if m.waiting {
		return toneStyle.Render("Thinking...")
	}
	return ""
}

func (m model) View() string {
	return fmt.Sprintf("%s\n%s  %s\n%s",
		m.viewport.View(),
		toneStyle.Render("tone: "+tones[m.tone]+" (tab to change)"),
		m.status(),
		m.textarea.View(),
	) + "\n\n"
}
