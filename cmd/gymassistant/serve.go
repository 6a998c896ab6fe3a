package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/gymassistant/completion"
	chatbatchpost "github.com/a-h/gymassistant/handlers/chat/batch/post"
	chatstreampost "github.com/a-h/gymassistant/handlers/chat/stream/post"
	"github.com/a-h/gymassistant/metrics"
	"github.com/a-h/gymassistant/prompt"
	"github.com/a-h/gymassistant/tracing"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/sync/errgroup"
)

type ServeCommand struct {
	OllamaURL        string  `help:"The URL of the Ollama server." env:"OLLAMA_URL" default:"http://127.0.0.1:11434/"`
	ChatModel        string  `help:"The model to chat with." env:"CHAT_MODEL" default:"gemma3:4b"`
	Temperature      float64 `help:"The sampling temperature." env:"TEMPERATURE" default:"0.7"`
	SystemPrompt     string  `help:"The system instruction sent before each prompt." env:"SYSTEM_PROMPT" default:"Be concise and direct."`
	PromptTemplate   string  `help:"A Jinja2 prompt template file. The built-in template is used if empty." env:"PROMPT_TEMPLATE" default:""`
	BatchConcurrency int     `help:"The number of batch prompts sent to the model at once." env:"BATCH_CONCURRENCY" default:"4"`
	TracingProject   string  `help:"The project name attached to traced model calls. Tracing is disabled if empty." env:"TRACING_PROJECT" default:"Gym Assistant"`
	ListenAddr       string  `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:8000"`
	TLSCertFile      string  `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile       string  `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	LogLevel         string  `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	log.Info("loading prompt template", slog.String("filename", c.PromptTemplate))
	tmpl, err := prompt.Load(c.PromptTemplate)
	if err != nil {
		return fmt.Errorf("failed to load prompt template: %w", err)
	}

	log.Info("creating LLM client", slog.String("url", c.OllamaURL), slog.String("model", c.ChatModel))
	llmc, err := ollama.New(
		ollama.WithModel(c.ChatModel),
		ollama.WithHTTPClient(&http.Client{}),
		ollama.WithServerURL(c.OllamaURL))
	if err != nil {
		return fmt.Errorf("failed to create LLM: %w", err)
	}
	llmc.CallbacksHandler = tracing.NewTracer(log)

	completer := completion.New(llmc,
		completion.WithSystemPrompt(c.SystemPrompt),
		completion.WithTemperature(c.Temperature),
		completion.WithBatchConcurrency(c.BatchConcurrency))

	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: newHandler(log, tmpl, completer, c.TracingProject),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if c.TLSCertFile != "" && c.TLSKeyFile != "" {
			log.Info("Enabling TLS mode")
			cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
			if err != nil {
				return fmt.Errorf("failed to load cert: %w", err)
			}
			s.TLSConfig = &tls.Config{
				MinVersion:   tls.VersionTLS12,
				Certificates: []tls.Certificate{cert},
			}
			log.Info("Listening", slog.String("addr", c.ListenAddr))
			return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
		}
		log.Info("Listening", slog.String("addr", c.ListenAddr))
		return s.ListenAndServe()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	if err = g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newHandler wires the routes. Each route is wrapped individually so that the
// metrics middleware sees the matched pattern.
func newHandler(log *slog.Logger, tmpl *prompt.Template, completer *completion.Completer, tracingProject string) http.Handler {
	mux := http.NewServeMux()

	csh := chatstreampost.New(log, tmpl, completer)
	mux.Handle("POST /chat/stream", metrics.Middleware(tracing.Middleware(tracingProject, csh)))

	cbh := chatbatchpost.New(log, tmpl, completer)
	mux.Handle("POST /chat/batch", metrics.Middleware(tracing.Middleware(tracingProject, cbh)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = mux
	h = middleware.Recoverer(h)
	h = middleware.RealIP(h)
	h = middleware.RequestID(h)
	return cors.AllowAll().Handler(h)
}
