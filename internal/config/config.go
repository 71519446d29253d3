package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/trailrace.db"`
	StoreDriver string     `env:"STORE_DRIVER" envDefault:"sqlite"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	SeedContent bool       `env:"SEED_CONTENT" envDefault:"true"`
	PublicURL   string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"60s"`

	Payment Payment
	Mail    Mail

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

type Payment struct {
	Provider          string        `env:"PAYMENT_PROVIDER"`
	Currency          string        `env:"PAYMENT_CURRENCY" envDefault:"ron"`
	LinkTTL           time.Duration `env:"PAYMENT_LINK_TTL" envDefault:"24h"`
	VerifyRedirect    bool          `env:"PAYMENT_VERIFY_REDIRECT" envDefault:"true"`
	StripeSecretKey   string        `env:"STRIPE_SECRET_KEY"`
	StripePublicKey   string        `env:"STRIPE_PUBLIC_KEY"`
	StripeWebhookKey  string        `env:"STRIPE_WEBHOOK_SECRET"`
	StubWebhookSecret string        `env:"STUB_WEBHOOK_SECRET" envDefault:"change-me"`
	StubAutoCapture   bool          `env:"STUB_AUTO_CAPTURE" envDefault:"false"`
}

type Mail struct {
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	From           string `env:"MAIL_FROM" envDefault:"noreply@stanadevaletrail.ro"`
	FromName       string `env:"MAIL_FROM_NAME" envDefault:"Stâna de Vale Trail Race"`
	OrganizerEmail string `env:"ORGANIZER_EMAIL" envDefault:"contact@stanadevaletrail.ro"`
}

// Load reads an optional .env file from the working directory and then
// parses the process environment. Variables already set in the
// environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Payment.Provider == "" {
		// Auto-capture marks every intent paid, so it is only honoured
		// when the stub was chosen on purpose.
		if cfg.Payment.StubAutoCapture {
			return nil, errors.New("STUB_AUTO_CAPTURE requires PAYMENT_PROVIDER=stub")
		}
		cfg.Payment.Provider = "stub"
		if cfg.Payment.StripeSecretKey != "" {
			cfg.Payment.Provider = "stripe"
		}
	}
	switch cfg.StoreDriver {
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return &cfg, nil
}
