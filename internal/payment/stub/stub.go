// Package stub is an in-process payment provider for development and
// tests. Intents live in memory; the hosted page is served by this app
// under /pay/stub, and webhooks are signed with HMAC-SHA256 in the
// X-Signature header.
package stub

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stanadevale/trailrace/internal/payment"
)

type Provider struct {
	secret      string
	baseURL     string
	autoCapture bool

	mu      sync.Mutex
	intents map[string]payment.Intent
}

// New returns a stub provider. With autoCapture set, intents are created
// already succeeded, which mirrors a card that is charged immediately.
func New(secret, baseURL string, autoCapture bool) *Provider {
	return &Provider{
		secret:      secret,
		baseURL:     strings.TrimRight(baseURL, "/"),
		autoCapture: autoCapture,
		intents:     make(map[string]payment.Intent),
	}
}

func (p *Provider) Name() string { return "stub" }

func (p *Provider) CreateIntent(_ context.Context, req payment.IntentRequest) (payment.Intent, error) {
	if req.Amount <= 0 {
		return payment.Intent{}, &payment.ProviderError{Provider: p.Name(), Message: "amount must be positive"}
	}

	id := "pi_stub_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := payment.Intent{
		ID:            id,
		ClientSecret:  id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		URL:           p.baseURL + "/pay/stub?intent=" + url.QueryEscape(id),
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        payment.StatusRequiresPaymentMethod,
		ParticipantID: req.ParticipantID,
		RaceID:        req.RaceID,
	}
	if p.autoCapture {
		in.Status = payment.StatusSucceeded
	}

	p.mu.Lock()
	p.intents[id] = in
	p.mu.Unlock()
	return in, nil
}

func (p *Provider) GetIntent(_ context.Context, id string) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[id]
	if !ok {
		return payment.Intent{}, payment.ErrUnknownIntent
	}
	return in, nil
}

// Complete marks an intent as paid, as if the customer finished the
// hosted checkout.
func (p *Provider) Complete(id string) (payment.Intent, error) {
	return p.setStatus(id, payment.StatusSucceeded)
}

func (p *Provider) setStatus(id string, st payment.IntentStatus) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.intents[id]
	if !ok {
		return payment.Intent{}, payment.ErrUnknownIntent
	}
	in.Status = st
	p.intents[id] = in
	return in, nil
}

type webhookPayload struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}

// Sign returns the X-Signature value for body.
func (p *Provider) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookBody builds a signed-ready payload for id. Used by the hosted
// stub page and by tests.
func WebhookBody(id string, st payment.IntentStatus) []byte {
	b, _ := json.Marshal(webhookPayload{PaymentIntentID: id, Status: string(st)})
	return b
}

func (p *Provider) ParseWebhook(body []byte, header http.Header) (payment.Event, error) {
	sig := header.Get("X-Signature")
	if sig == "" || !hmac.Equal([]byte(sig), []byte(p.Sign(body))) {
		return payment.Event{}, payment.ErrInvalidSignature
	}

	var pl webhookPayload
	if err := json.Unmarshal(body, &pl); err != nil {
		return payment.Event{}, fmt.Errorf("decoding stub webhook: %w", err)
	}
	if pl.PaymentIntentID == "" {
		return payment.Event{}, fmt.Errorf("stub webhook without paymentIntentId")
	}

	st := payment.IntentStatus(strings.TrimSpace(pl.Status))
	if st == "" {
		st = payment.StatusSucceeded
	}
	if _, err := p.setStatus(pl.PaymentIntentID, st); err != nil {
		return payment.Event{}, err
	}

	return payment.Event{
		Type:      "payment_intent." + string(st),
		IntentID:  pl.PaymentIntentID,
		Succeeded: st == payment.StatusSucceeded,
	}, nil
}
