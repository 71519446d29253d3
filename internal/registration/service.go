// Package registration implements the participant workflow: intake with
// bib assignment, payment intent creation and payment confirmation.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/payment"
	"github.com/stanadevale/trailrace/internal/store"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// Store is the persistence the workflow needs.
type Store interface {
	GetRace(ctx context.Context, id int64) (trailrace.Race, error)
	CreateParticipant(ctx context.Context, p trailrace.Participant, bibPrefix string) (trailrace.Participant, error)
	GetParticipant(ctx context.Context, id int64) (trailrace.Participant, error)
	ParticipantByPaymentToken(ctx context.Context, token string) (trailrace.Participant, error)
	SetPaymentLink(ctx context.Context, id int64, link trailrace.PaymentLink) error
	TransitionStatus(ctx context.Context, id int64, to trailrace.Status, from ...trailrace.Status) (trailrace.Participant, bool, error)
}

type Options struct {
	Currency string
	// LinkTTL is how long a recorded payment link stays valid.
	LinkTTL time.Duration
	// VerifyRedirect makes confirmation by participant id check the
	// provider when an intent was recorded for the participant.
	VerifyRedirect bool
	Now            func() time.Time
}

type Service struct {
	store    Store
	payments payment.Provider
	mailer   mail.Mailer
	logger   *slog.Logger
	validate *validator.Validate

	currency       string
	linkTTL        time.Duration
	verifyRedirect bool
	now            func() time.Time
}

func NewService(st Store, payments payment.Provider, mailer mail.Mailer, logger *slog.Logger, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "ron"
	}
	if opts.LinkTTL == 0 {
		opts.LinkTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:          st,
		payments:       payments,
		mailer:         mailer,
		logger:         logger,
		validate:       newValidator(),
		currency:       strings.ToLower(opts.Currency),
		linkTTL:        opts.LinkTTL,
		verifyRedirect: opts.VerifyRedirect,
		now:            opts.Now,
	}
}

// RegisterRequest is the registration form. AcceptTerms is enforced by
// the form itself and only recorded here.
type RegisterRequest struct {
	FirstName             string `json:"firstName" validate:"required,min=2,max=100"`
	LastName              string `json:"lastName" validate:"required,min=2,max=100"`
	Email                 string `json:"email" validate:"required,email"`
	Phone                 string `json:"phone" validate:"required,min=10,max=20"`
	Country               string `json:"country" validate:"required,min=2,max=100"`
	BirthDate             string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Gender                string `json:"gender" validate:"required,oneof=M F"`
	RaceID                int64  `json:"raceId" validate:"required,gt=0"`
	MedicalInfo           string `json:"medicalInfo,omitempty" validate:"max=2000"`
	IsEMAParticipant      bool   `json:"isEmaParticipant,omitempty"`
	TShirtSize            string `json:"tshirtSize,omitempty" validate:"omitempty,oneof=XS S M L XL XXL"`
	EmergencyContactName  string `json:"emergencyContactName,omitempty" validate:"omitempty,min=2,max=100"`
	EmergencyContactPhone string `json:"emergencyContactPhone,omitempty" validate:"omitempty,min=10,max=20"`
	AcceptTerms           bool   `json:"acceptTerms,omitempty"`
}

func (r *RegisterRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Country = strings.TrimSpace(r.Country)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Gender = strings.ToUpper(strings.TrimSpace(r.Gender))
	r.TShirtSize = strings.ToUpper(strings.TrimSpace(r.TShirtSize))
	r.EmergencyContactName = strings.TrimSpace(r.EmergencyContactName)
	r.EmergencyContactPhone = strings.TrimSpace(r.EmergencyContactPhone)
}

type Registration struct {
	Participant trailrace.Participant
	Race        trailrace.Race
}

// Register validates req and stores a pending participant with the next
// bib number of the race. It has no side effects beyond the write.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Registration, error) {
	req.normalize()
	if err := check(s.validate, req); err != nil {
		return Registration{}, err
	}

	now := s.now()
	birth, _ := time.Parse("2006-01-02", req.BirthDate)
	if !birth.Before(now) {
		return Registration{}, invalid("birthDate", "must be in the past")
	}

	race, err := s.store.GetRace(ctx, req.RaceID)
	if err != nil {
		return Registration{}, fmt.Errorf("race %d: %w", req.RaceID, err)
	}

	p := trailrace.Participant{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Email:                 req.Email,
		Phone:                 req.Phone,
		Country:               req.Country,
		BirthDate:             birth,
		Age:                   trailrace.AgeAt(birth, now),
		Gender:                trailrace.Gender(req.Gender),
		RaceID:                race.ID,
		Status:                trailrace.StatusPending,
		MedicalInfo:           req.MedicalInfo,
		IsEMAParticipant:      req.IsEMAParticipant,
		TShirtSize:            req.TShirtSize,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		RegistrationDate:      now,
	}

	p, err = s.store.CreateParticipant(ctx, p, trailrace.BibPrefix(race.DistanceKm))
	if err != nil {
		return Registration{}, fmt.Errorf("creating participant: %w", err)
	}

	s.logger.Info("participant registered",
		"participant_id", p.ID,
		"race_id", race.ID,
		"bib", p.BibNumber,
	)
	return Registration{Participant: p, Race: race}, nil
}

// SendRegistrationReceipt emails the participant their bib number and
// fee. Delivery failures are logged, not returned.
func (s *Service) SendRegistrationReceipt(ctx context.Context, reg Registration) {
	s.send(ctx, mail.RegistrationReceived(reg.Participant, reg.Race))
}

func (s *Service) send(ctx context.Context, m mail.Message) {
	if err := s.mailer.Send(ctx, m); err != nil {
		s.logger.Error("sending email", "to", m.To.Email, "subject", m.Subject, "error", err)
	}
}

type IntentRequest struct {
	// Amount is in major currency units. Zero means the race price.
	Amount        float64 `json:"amount" validate:"gte=0"`
	RaceID        int64   `json:"raceId" validate:"required,gt=0"`
	ParticipantID int64   `json:"participantId" validate:"required,gt=0"`
}

type IntentResult struct {
	ClientSecret    string  `json:"clientSecret"`
	PaymentIntentID string  `json:"paymentIntentId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentURL      string  `json:"paymentUrl,omitempty"`
}

// CreatePaymentIntent opens a provider payment for a pending participant
// and records the intent id on the participant for later reconciliation.
// Provider errors are returned as *payment.ProviderError without retry.
func (s *Service) CreatePaymentIntent(ctx context.Context, req IntentRequest) (IntentResult, error) {
	if err := check(s.validate, req); err != nil {
		return IntentResult{}, err
	}

	p, err := s.store.GetParticipant(ctx, req.ParticipantID)
	if err != nil {
		return IntentResult{}, fmt.Errorf("participant %d: %w", req.ParticipantID, err)
	}
	if p.RaceID != req.RaceID {
		return IntentResult{}, invalid("raceId", "does not match the participant's race")
	}
	if p.Status != trailrace.StatusPending {
		return IntentResult{}, fmt.Errorf("participant %d is %s: %w", p.ID, p.Status, ErrNotPending)
	}
	race, err := s.store.GetRace(ctx, req.RaceID)
	if err != nil {
		return IntentResult{}, fmt.Errorf("race %d: %w", req.RaceID, err)
	}

	amount := req.Amount
	if amount == 0 {
		amount = race.Price
	}

	intent, err := s.payments.CreateIntent(ctx, payment.IntentRequest{
		Amount:        payment.MinorUnits(amount),
		Currency:      s.currency,
		ParticipantID: p.ID,
		RaceID:        race.ID,
		Description:   fmt.Sprintf("%s %s (%s)", race.Name.In("ro"), p.BibNumber, p.FullName()),
		ReceiptEmail:  p.Email,
	})
	if err != nil {
		return IntentResult{}, err
	}

	now := s.now()
	link := trailrace.PaymentLink{
		Link:      intent.URL,
		CreatedAt: now,
		ExpiresAt: now.Add(s.linkTTL),
		Token:     intent.ID,
	}
	if err := s.store.SetPaymentLink(ctx, p.ID, link); err != nil {
		return IntentResult{}, fmt.Errorf("recording payment link: %w", err)
	}

	s.logger.Info("payment intent created",
		"participant_id", p.ID,
		"intent_id", intent.ID,
		"provider", s.payments.Name(),
		"amount", intent.Amount,
	)
	return IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          payment.MajorUnits(intent.Amount),
		Currency:        intent.Currency,
		PaymentURL:      intent.URL,
	}, nil
}

// Confirmation is the outcome of a confirm call. Changed is false when the
// participant was already confirmed.
type Confirmation struct {
	Participant trailrace.Participant
	Changed     bool
}

// ConfirmByIntent confirms the participant an intent was created for,
// once the provider reports the intent as succeeded.
func (s *Service) ConfirmByIntent(ctx context.Context, intentID string) (Confirmation, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return Confirmation{}, invalid("paymentIntentId", "is required")
	}

	intent, err := s.payments.GetIntent(ctx, intentID)
	if err != nil {
		return Confirmation{}, err
	}
	if !intent.Succeeded() {
		return Confirmation{}, fmt.Errorf("intent %s is %s: %w", intent.ID, intent.Status, ErrPaymentNotCompleted)
	}

	p, err := s.store.ParticipantByPaymentToken(ctx, intent.ID)
	if errors.Is(err, store.ErrNotFound) && intent.ParticipantID != 0 {
		p, err = s.store.GetParticipant(ctx, intent.ParticipantID)
	}
	if err != nil {
		return Confirmation{}, fmt.Errorf("participant for intent %s: %w", intent.ID, err)
	}
	return s.confirm(ctx, p.ID, "intent")
}

// ConfirmByParticipant confirms a participant by id, as used by the
// provider's redirect back to the site. When an intent is on record and
// verification is enabled, the provider must report it as succeeded.
func (s *Service) ConfirmByParticipant(ctx context.Context, participantID int64) (Confirmation, error) {
	if participantID <= 0 {
		return Confirmation{}, invalid("participantId", "must be greater than 0")
	}

	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("participant %d: %w", participantID, err)
	}
	if p.Status == trailrace.StatusConfirmed {
		return Confirmation{Participant: p}, nil
	}

	switch {
	case !s.verifyRedirect:
	case p.Payment == nil || p.Payment.Token == "":
		s.logger.Warn("confirming participant without a recorded payment intent", "participant_id", p.ID)
	default:
		intent, err := s.payments.GetIntent(ctx, p.Payment.Token)
		if errors.Is(err, payment.ErrUnknownIntent) {
			return Confirmation{}, fmt.Errorf("intent %s unknown to provider: %w", p.Payment.Token, ErrPaymentNotCompleted)
		}
		if err != nil {
			return Confirmation{}, err
		}
		if !intent.Succeeded() {
			return Confirmation{}, fmt.Errorf("intent %s is %s: %w", intent.ID, intent.Status, ErrPaymentNotCompleted)
		}
	}
	return s.confirm(ctx, p.ID, "participant")
}

// ConfirmManually confirms a participant without consulting the payment
// provider, for organizers reconciling payments by hand.
func (s *Service) ConfirmManually(ctx context.Context, participantID int64) (Confirmation, error) {
	return s.confirm(ctx, participantID, "manual")
}

// HandleWebhook verifies a provider notification and confirms the
// matching participant when it reports a successful payment. A nil
// Confirmation means the event was valid but not actionable.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, header http.Header) (*Confirmation, error) {
	ev, err := s.payments.ParseWebhook(body, header)
	if err != nil {
		return nil, err
	}
	if !ev.Succeeded || ev.IntentID == "" {
		s.logger.Debug("ignoring payment event", "type", ev.Type, "intent_id", ev.IntentID)
		return nil, nil
	}
	c, err := s.ConfirmByIntent(ctx, ev.IntentID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) confirm(ctx context.Context, participantID int64, via string) (Confirmation, error) {
	p, changed, err := s.store.TransitionStatus(ctx, participantID,
		trailrace.StatusConfirmed, trailrace.StatusPending)
	if err != nil {
		return Confirmation{}, fmt.Errorf("participant %d: %w", participantID, err)
	}
	if !changed {
		if p.Status == trailrace.StatusConfirmed {
			return Confirmation{Participant: p}, nil
		}
		return Confirmation{}, fmt.Errorf("participant %d is %s: %w", p.ID, p.Status, ErrNotPending)
	}

	s.logger.Info("participant confirmed", "participant_id", p.ID, "bib", p.BibNumber, "via", via)

	race, err := s.store.GetRace(ctx, p.RaceID)
	if err != nil {
		s.logger.Error("loading race for confirmation email", "race_id", p.RaceID, "error", err)
	} else {
		s.send(ctx, mail.PaymentConfirmed(p, race))
	}
	return Confirmation{Participant: p, Changed: true}, nil
}

// Cancel withdraws a registration. Cancelling twice is a no-op.
func (s *Service) Cancel(ctx context.Context, participantID int64) (trailrace.Participant, error) {
	p, changed, err := s.store.TransitionStatus(ctx, participantID,
		trailrace.StatusCancelled, trailrace.StatusPending, trailrace.StatusConfirmed)
	if err != nil {
		return p, fmt.Errorf("participant %d: %w", participantID, err)
	}
	if changed {
		s.logger.Info("participant cancelled", "participant_id", p.ID, "bib", p.BibNumber)
	}
	return p, nil
}
