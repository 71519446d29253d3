// Package payment defines the provider-neutral view of payment intents
// used by registration. Concrete providers live in subpackages.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
)

var (
	ErrUnknownIntent    = errors.New("unknown payment intent")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusProcessing            IntentStatus = "processing"
	StatusSucceeded             IntentStatus = "succeeded"
	StatusCanceled              IntentStatus = "canceled"
)

type IntentRequest struct {
	// Amount is in minor currency units.
	Amount        int64
	Currency      string
	ParticipantID int64
	RaceID        int64
	Description   string
	ReceiptEmail  string
}

type Intent struct {
	ID           string
	ClientSecret string
	// URL is a hosted payment page, when the provider offers one.
	URL           string
	Amount        int64
	Currency      string
	Status        IntentStatus
	ParticipantID int64
	RaceID        int64
}

func (i Intent) Succeeded() bool { return i.Status == StatusSucceeded }

// Event is a verified provider notification about an intent.
type Event struct {
	Type      string
	IntentID  string
	Succeeded bool
}

type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetIntent(ctx context.Context, id string) (Intent, error)
	// ParseWebhook verifies the signature of a webhook delivery and
	// extracts the intent it refers to.
	ParseWebhook(body []byte, header http.Header) (Event, error)
}

// ProviderError carries a message from the payment provider that is safe
// to show to the client.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MinorUnits converts a major-unit amount (lei) to minor units (bani).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// MajorUnits is the inverse of MinorUnits.
func MajorUnits(minor int64) float64 {
	return float64(minor) / 100
}
