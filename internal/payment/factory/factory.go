// Package factory selects the payment provider named in configuration.
package factory

import (
	"fmt"

	"github.com/stanadevale/trailrace/internal/config"
	"github.com/stanadevale/trailrace/internal/payment"
	"github.com/stanadevale/trailrace/internal/payment/stripe"
	"github.com/stanadevale/trailrace/internal/payment/stub"
)

func NewProvider(cfg config.Payment, publicURL string) (payment.Provider, error) {
	switch cfg.Provider {
	case "stub":
		return stub.New(cfg.StubWebhookSecret, publicURL, cfg.StubAutoCapture), nil
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("payment provider stripe requires STRIPE_SECRET_KEY")
		}
		return stripe.New(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", cfg.Provider)
	}
}
