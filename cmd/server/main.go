package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/config"
	"github.com/stanadevale/trailrace/internal/content"
	"github.com/stanadevale/trailrace/internal/handler/health"
	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/payment/factory"
	"github.com/stanadevale/trailrace/internal/payment/stub"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/server"
	"github.com/stanadevale/trailrace/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Store ---
	st, closeStore, err := store.Open(ctx, cfg.StoreDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer closeStore()
	logger.Info("store ready", "driver", cfg.StoreDriver, "path", cfg.DBPath)

	if cfg.SeedContent {
		bundle, err := content.Default()
		if err != nil {
			return fmt.Errorf("loading seed content: %w", err)
		}
		if _, err := content.Seed(ctx, logger, st, bundle); err != nil {
			return fmt.Errorf("seeding content: %w", err)
		}
	}

	if cfg.AdminUsername != "" {
		created, err := server.EnsureAdmin(ctx, st, cfg.AdminUsername, cfg.AdminPassword, time.Now())
		if err != nil {
			return fmt.Errorf("provisioning admin: %w", err)
		}
		logger.Info("admin account ready", "username", cfg.AdminUsername, "created", created)
	}

	// --- Redis ---
	var respCache cache.Cache = cache.Nop{}
	checks := health.NewHandler(logger).Critical("store", health.CheckFunc(st.Ping))
	if cfg.RedisURL != "" {
		rdb, err := cache.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		respCache = cache.NewRedis(rdb, cfg.CacheTTL, logger)
		checks.Optional("redis", health.CheckFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
		logger.Info("connected to redis")
	}

	// --- Payments and mail ---
	payments, err := factory.NewProvider(cfg.Payment, cfg.PublicURL)
	if err != nil {
		return fmt.Errorf("configuring payments: %w", err)
	}
	stubPay, _ := payments.(*stub.Provider)
	if stubPay != nil {
		logger.Warn("using stub payment provider; no real charges are made")
	}
	logger.Info("payment provider ready", "provider", payments.Name(), "currency", cfg.Payment.Currency)

	mailer := mail.New(cfg.Mail.SendGridAPIKey, mail.Address{Email: cfg.Mail.From, Name: cfg.Mail.FromName}, logger)
	logger.Info("mailer ready", "provider", mailer.Status().Provider)

	svc := registration.NewService(st, payments, mailer, logger, registration.Options{
		Currency:       cfg.Payment.Currency,
		LinkTTL:        cfg.Payment.LinkTTL,
		VerifyRedirect: cfg.Payment.VerifyRedirect,
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:          st,
		Service:        svc,
		Payments:       payments,
		Mailer:         mailer,
		Cache:          respCache,
		PublishableKey: cfg.Payment.StripePublicKey,
		Currency:       cfg.Payment.Currency,
		StubPay:        stubPay,
		OrganizerEmail: cfg.Mail.OrganizerEmail,
		PublicURL:      cfg.PublicURL,
		SPADir:         cfg.SPADir,
	}, func(r chi.Router) {
		r.Mount("/healthz", checks.Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
