package display

import (
	"errors"
	"strings"

	"github.com/a-h/gymassistant/models"
)

var ErrNoQuestions = errors.New("please enter at least one question")

// InvalidLine is a batch line that couldn't be parsed.
type InvalidLine struct {
	Number int
	Text   string
}

func (il InvalidLine) Error() string {
	return "Invalid format: " + il.Text
}

// ParseBatch parses one "question | tone" pair per line. The line is split on
// the first pipe and both sides are trimmed. Lines without a pipe, or with
// nothing on one side of it, are returned as invalid. Blank lines are skipped.
func ParseBatch(text string) (prompts []models.ChatRequest, invalid []InvalidLine, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrNoQuestions
	}
	for i, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		question, tone, ok := strings.Cut(line, "|")
		question, tone = strings.TrimSpace(question), strings.TrimSpace(tone)
		// Empty fields would fail the whole batch on the service.
		if !ok || question == "" || tone == "" {
			invalid = append(invalid, InvalidLine{Number: i + 1, Text: line})
			continue
		}
		prompts = append(prompts, models.ChatRequest{
			UserMessage: question,
			Tone:        tone,
		})
	}
	return prompts, invalid, nil
}
