// Package health serves the /healthz readiness report.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function such as a Ping method to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// Result is the outcome of one check.
type Result struct {
	Status    string `json:"status"`
	Critical  bool   `json:"critical"`
	LatencyMs int64  `json:"latencyMs"`
}

// Report is the body of GET /healthz. A failing critical check makes the
// report an error (503); a failing optional check only degrades it.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

type entry struct {
	checker  Checker
	critical bool
}

type Handler struct {
	logger  *slog.Logger
	timeout time.Duration
	checks  map[string]entry
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		timeout: 3 * time.Second,
		checks:  make(map[string]entry),
	}
}

// Critical registers a dependency the site cannot serve requests without.
func (h *Handler) Critical(name string, c Checker) *Handler {
	h.checks[name] = entry{checker: c, critical: true}
	return h
}

// Optional registers a dependency whose loss the site tolerates, such as
// the response cache.
func (h *Handler) Optional(name string, c Checker) *Handler {
	h.checks[name] = entry{checker: c}
	return h
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

// Run executes every check concurrently.
func (h *Handler) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		rep = Report{Status: StatusOK, Checks: make(map[string]Result, len(h.checks))}
		g   errgroup.Group
	)
	for name, e := range h.checks {
		g.Go(func() error {
			start := time.Now()
			err := e.checker.Check(ctx)
			res := Result{Status: StatusOK, Critical: e.critical, LatencyMs: time.Since(start).Milliseconds()}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("health check failed", "name", name, "critical", e.critical, "error", err)
				res.Status = StatusError
				switch {
				case e.critical:
					rep.Status = StatusError
				case rep.Status == StatusOK:
					rep.Status = StatusDegraded
				}
			}
			rep.Checks[name] = res
			return nil
		})
	}
	_ = g.Wait()
	return rep
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	rep := h.Run(r.Context())

	status := http.StatusOK
	if rep.Status == StatusError {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rep)
}
