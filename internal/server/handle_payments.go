package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// ConfirmByIntentRequest is the body of POST /api/confirm-payment-by-intent.
type ConfirmByIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// ConfirmByParticipantRequest is the body of POST /api/confirm-payment.
type ConfirmByParticipantRequest struct {
	ParticipantID int64 `json:"participantId"`
}

// ConfirmResponse reports a successful confirmation. AlreadyConfirmed is
// set when the call was a repeat. Anyone who knows a participant id can
// ask, so only the roster view is returned.
type ConfirmResponse struct {
	Success          bool              `json:"success"`
	AlreadyConfirmed bool              `json:"alreadyConfirmed"`
	Participant      PublicParticipant `json:"participant"`
}

func newConfirmResponse(c registration.Confirmation, now time.Time) ConfirmResponse {
	return ConfirmResponse{Success: true, AlreadyConfirmed: !c.Changed, Participant: newPublicParticipant(c.Participant, now)}
}

// IntentConfirmResponse is returned to the holder of the payment intent,
// who is the registrant, so it carries the full record.
type IntentConfirmResponse struct {
	Success          bool                  `json:"success"`
	AlreadyConfirmed bool                  `json:"alreadyConfirmed"`
	Participant      trailrace.Participant `json:"participant"`
}

func publishConfirmation(broker *Broker, c registration.Confirmation) {
	if c.Changed {
		broker.Publish(newRosterEvent("confirmed", c.Participant))
	}
}

func handleCreatePaymentIntent(logger *slog.Logger, svc *registration.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registration.IntentRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		res, err := svc.CreatePaymentIntent(r.Context(), req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleConfirmByIntent(logger *slog.Logger, svc *registration.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmByIntentRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c, err := svc.ConfirmByIntent(r.Context(), req.PaymentIntentID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		publishConfirmation(broker, c)
		writeJSON(w, http.StatusOK, IntentConfirmResponse{Success: true, AlreadyConfirmed: !c.Changed, Participant: c.Participant})
	}
}

func handleConfirmByParticipant(logger *slog.Logger, svc *registration.Service, broker *Broker, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmByParticipantRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		c, err := svc.ConfirmByParticipant(r.Context(), req.ParticipantID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		publishConfirmation(broker, c)
		writeJSON(w, http.StatusOK, newConfirmResponse(c, now()))
	}
}

// handlePaymentWebhook receives provider notifications. Events that are
// verified but not actionable are acknowledged so the provider does not
// redeliver them. That includes a payment for a participant the organizer
// has already cancelled.
func handlePaymentWebhook(logger *slog.Logger, svc *registration.Service, broker *Broker, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		c, err := svc.HandleWebhook(r.Context(), body, r.Header)
		if errors.Is(err, registration.ErrNotPending) {
			logger.Warn("payment received for participant that is not pending", "error", err)
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if c == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}
		publishConfirmation(broker, *c)
		writeJSON(w, http.StatusOK, newConfirmResponse(*c, now()))
	}
}
