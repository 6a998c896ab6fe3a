package post

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/gymassistant/completion"
	"github.com/a-h/gymassistant/handlers/request"
	"github.com/a-h/gymassistant/models"
	"github.com/a-h/gymassistant/prompt"
	"github.com/a-h/respond"
	"github.com/go-chi/chi/v5/middleware"
)

func New(log *slog.Logger, tmpl *prompt.Template, completer *completion.Completer) Handler {
	return Handler{
		log:       log,
		tmpl:      tmpl,
		completer: completer,
	}
}

type Handler struct {
	log       *slog.Logger
	tmpl      *prompt.Template
	completer *completion.Completer
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("requestID", middleware.GetReqID(r.Context())))

	var req models.BatchChatRequest
	if err := request.Decode(r, &req); err != nil {
		var re request.Error
		errors.As(err, &re)
		log.Warn("invalid request", slog.Any("error", err))
		respond.WithError(w, re.Message, re.Status)
		return
	}

	prompts := make([]string, len(req.Prompts))
	for i, p := range req.Prompts {
		var err error
		if prompts[i], err = h.tmpl.Render(p.UserMessage, p.Tone); err != nil {
			log.Error("failed to render prompt", slog.Int("index", i), slog.Any("error", err))
			respond.WithError(w, "failed to render prompt", http.StatusInternalServerError)
			return
		}
	}

	log.Info("generating batch", slog.Int("prompts", len(prompts)))
	responses, err := h.completer.Batch(r.Context(), prompts)
	if err != nil {
		log.Error("failed to generate batch", slog.Any("error", err))
		respond.WithError(w, "failed to generate content", http.StatusInternalServerError)
		return
	}

	respond.WithJSON(w, models.BatchChatResponse{Responses: responses}, http.StatusOK)
}
