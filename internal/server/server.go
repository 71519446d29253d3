package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/payment"
	"github.com/stanadevale/trailrace/internal/payment/stub"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/store"
)

// Deps are the collaborators the HTTP handlers use.
type Deps struct {
	Store    store.Store
	Service  *registration.Service
	Payments payment.Provider
	Mailer   mail.Mailer
	Cache    cache.Cache

	// PublishableKey and Currency are handed to the checkout page.
	PublishableKey string
	Currency       string

	// StubPay is set when the stub provider is active; it enables the
	// hosted test checkout under /pay/stub.
	StubPay *stub.Provider

	// OrganizerEmail receives contact form submissions.
	OrganizerEmail string
	PublicURL      string
	SPADir         string
	Now            func() time.Time
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the HTTP server. mount, when non-nil, registers extra
// routes such as health checks that need process-level dependencies.
func New(addr string, logger *slog.Logger, deps Deps, mount func(r chi.Router)) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, deps, mount),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler returns the fully wired router.
func NewHandler(logger *slog.Logger, deps Deps, mount func(r chi.Router)) http.Handler {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
