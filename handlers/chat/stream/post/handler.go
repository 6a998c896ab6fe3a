package post

import (
	"context"
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

	var req models.ChatRequest
	if err := request.Decode(r, &req); err != nil {
		var re request.Error
		errors.As(err, &re)
		log.Warn("invalid request", slog.Any("error", err))
		respond.WithError(w, re.Message, re.Status)
		return
	}

	rendered, err := h.tmpl.Render(req.UserMessage, req.Tone)
	if err != nil {
		log.Error("failed to render prompt", slog.Any("error", err))
		respond.WithError(w, "failed to render prompt", http.StatusInternalServerError)
		return
	}

	log.Info("streaming content", slog.String("tone", req.Tone))

	// Stop the model if the client goes away or a write fails.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	flusher, canFlush := w.(http.Flusher)
	var written, fragments int
	for f := range h.completer.Stream(ctx, rendered) {
		if f.Err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("failed to generate content", slog.Any("error", f.Err), slog.Int("bytes", written))
			if fragments == 0 {
				respond.WithError(w, "failed to generate content", http.StatusInternalServerError)
				return
			}
			// The status has already been sent. Abort the connection so the
			// client sees a truncated body instead of a complete response.
			panic(http.ErrAbortHandler)
		}
		if fragments == 0 {
			writeStreamHeader(w)
		}
		fragments++
		n, err := w.Write([]byte(f.Text))
		written += n
		if err != nil {
			log.Warn("client write failed", slog.Any("error", err))
			cancel()
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}
	if ctx.Err() != nil {
		log.Info("stream cancelled", slog.Int("fragments", fragments), slog.Int("bytes", written))
		return
	}
	if fragments == 0 {
		writeStreamHeader(w)
	}
	log.Info("stream complete", slog.Int("fragments", fragments), slog.Int("bytes", written))
}

func writeStreamHeader(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
}
