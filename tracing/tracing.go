// Package tracing records model calls made while serving a request.
//
// Tracing is enabled per request by Middleware, which attaches a project
// label to the request context. Each model call made with that context is
// a run: StartRun gives it an ID, and the Tracer, installed as the model's
// callbacks handler, logs the run and records metrics against the project.
package tracing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/llms"
)

type contextKey int

const (
	projectKey contextKey = iota
	runKey
)

// Middleware enables tracing under the given project for the duration of
// each request. An empty project leaves tracing disabled.
func Middleware(project string, next http.Handler) http.Handler {
	if project == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithProject(r.Context(), project)))
	})
}

func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, projectKey, project)
}

func Project(ctx context.Context) (project string, ok bool) {
	project, ok = ctx.Value(projectKey).(string)
	return project, ok && project != ""
}

// Run is a single traced model call.
type Run struct {
	ID      string
	Project string
	Started time.Time
}

// StartRun attaches a new run to the context if tracing is enabled.
// Otherwise ctx is returned unchanged.
func StartRun(ctx context.Context) context.Context {
	project, ok := Project(ctx)
	if !ok {
		return ctx
	}
	return context.WithValue(ctx, runKey, &Run{
		ID:      uuid.NewString(),
		Project: project,
		Started: time.Now(),
	})
}

func GetRun(ctx context.Context) (run *Run, ok bool) {
	run, ok = ctx.Value(runKey).(*Run)
	return run, ok
}

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gymassistant",
			Subsystem: "llm",
			Name:      "runs_total",
			Help:      "Total number of traced model calls",
		},
		[]string{"project", "status"},
	)
	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gymassistant",
			Subsystem: "llm",
			Name:      "run_duration_seconds",
			Help:      "Duration of traced model calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"project", "status"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration)
}

// Tracer is a langchaingo callbacks handler that logs traced runs.
type Tracer struct {
	callbacks.SimpleHandler
	log *slog.Logger
	now func() time.Time
}

var _ callbacks.Handler = (*Tracer)(nil)

func NewTracer(log *slog.Logger) *Tracer {
	return &Tracer{
		log: log,
		now: time.Now,
	}
}

func (t *Tracer) attrs(ctx context.Context, run *Run) []any {
	attrs := []any{
		slog.String("project", run.Project),
		slog.String("runID", run.ID),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		attrs = append(attrs, slog.String("requestID", reqID))
	}
	return attrs
}

func (t *Tracer) HandleLLMGenerateContentStart(ctx context.Context, ms []llms.MessageContent) {
	run, ok := GetRun(ctx)
	if !ok {
		return
	}
	t.log.Debug("llm run started", append(t.attrs(ctx, run), slog.Int("messages", len(ms)))...)
}

func (t *Tracer) HandleLLMGenerateContentEnd(ctx context.Context, res *llms.ContentResponse) {
	run, ok := GetRun(ctx)
	if !ok {
		return
	}
	d := t.now().Sub(run.Started)
	runsTotal.WithLabelValues(run.Project, "ok").Inc()
	runDuration.WithLabelValues(run.Project, "ok").Observe(d.Seconds())
	var choices int
	if res != nil {
		choices = len(res.Choices)
	}
	t.log.Info("llm run completed", append(t.attrs(ctx, run), slog.Duration("duration", d), slog.Int("choices", choices))...)
}

func (t *Tracer) HandleLLMError(ctx context.Context, err error) {
	run, ok := GetRun(ctx)
	if !ok {
		return
	}
	d := t.now().Sub(run.Started)
	runsTotal.WithLabelValues(run.Project, "error").Inc()
	runDuration.WithLabelValues(run.Project, "error").Observe(d.Seconds())
	t.log.Error("llm run failed", append(t.attrs(ctx, run), slog.Duration("duration", d), slog.Any("error", err))...)
}
