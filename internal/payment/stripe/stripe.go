// Package stripe adapts the Stripe PaymentIntents API to payment.Provider.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/stanadevale/trailrace/internal/payment"
)

const (
	metaParticipantID = "participantId"
	metaRaceID        = "raceId"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	// Backends overrides the Stripe API endpoint. Nil uses api.stripe.com.
	Backends *stripeapi.Backends
}

type Provider struct {
	sc            *client.API
	webhookSecret string
}

func New(cfg Config) *Provider {
	return &Provider{
		sc:            client.New(cfg.SecretKey, cfg.Backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (p *Provider) Name() string { return "stripe" }

func (p *Provider) CreateIntent(ctx context.Context, req payment.IntentRequest) (payment.Intent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(req.Amount),
		Currency: stripeapi.String(req.Currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripeapi.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripeapi.String(req.ReceiptEmail)
	}
	params.Context = ctx
	params.AddMetadata(metaParticipantID, strconv.FormatInt(req.ParticipantID, 10))
	params.AddMetadata(metaRaceID, strconv.FormatInt(req.RaceID, 10))

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return payment.Intent{}, p.wrap(err)
	}
	return toIntent(pi), nil
}

func (p *Provider) GetIntent(ctx context.Context, id string) (payment.Intent, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.sc.PaymentIntents.Get(id, params)
	if err != nil {
		return payment.Intent{}, p.wrap(err)
	}
	return toIntent(pi), nil
}

func (p *Provider) ParseWebhook(body []byte, header http.Header) (payment.Event, error) {
	event, err := webhook.ConstructEventWithOptions(body, header.Get("Stripe-Signature"), p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return payment.Event{}, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	ev := payment.Event{Type: string(event.Type)}
	if event.Data == nil {
		return ev, nil
	}

	var pi stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return ev, fmt.Errorf("decoding %s payload: %w", event.Type, err)
	}
	ev.IntentID = pi.ID
	ev.Succeeded = event.Type == "payment_intent.succeeded"
	return ev, nil
}

func (p *Provider) wrap(err error) error {
	var se *stripeapi.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("stripe: %w", err)
	}
	if se.Code == stripeapi.ErrorCodeResourceMissing {
		return payment.ErrUnknownIntent
	}
	msg := se.Msg
	if msg == "" {
		msg = string(se.Type)
	}
	return &payment.ProviderError{Provider: p.Name(), Message: msg, Err: err}
}

func toIntent(pi *stripeapi.PaymentIntent) payment.Intent {
	in := payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       payment.IntentStatus(pi.Status),
	}
	if v, err := strconv.ParseInt(pi.Metadata[metaParticipantID], 10, 64); err == nil {
		in.ParticipantID = v
	}
	if v, err := strconv.ParseInt(pi.Metadata[metaRaceID], 10, 64); err == nil {
		in.RaceID = v
	}
	return in
}
