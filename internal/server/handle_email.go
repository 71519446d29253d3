package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/registration"
)

func handleEmailStatus(mailer mail.Mailer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, mailer.Status())
	}
}

// TestEmailRequest is the body of POST /api/test-email.
type TestEmailRequest struct {
	To string `json:"to" validate:"required,email"`
}

// TestEmailResponse reports the outcome of a diagnostic send. Provider
// errors are returned in Error rather than as an HTTP failure.
type TestEmailResponse struct {
	Success  bool   `json:"success"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
}

func handleTestEmail(logger *slog.Logger, mailer mail.Mailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TestEmailRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.To = strings.TrimSpace(req.To)
		if err := registration.Validate(req); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := TestEmailResponse{Success: true, Provider: mailer.Status().Provider}
		status := http.StatusOK
		if err := mailer.Send(r.Context(), mail.TestMessage(req.To)); err != nil {
			logger.Warn("test email failed", "to", req.To, "error", err)
			resp.Success = false
			resp.Error = err.Error()
			status = http.StatusBadGateway
		}
		writeJSON(w, status, resp)
	}
}

// PaymentConfigResponse tells the checkout page which provider to load.
type PaymentConfigResponse struct {
	Provider       string `json:"provider"`
	PublishableKey string `json:"publishableKey,omitempty"`
	Currency       string `json:"currency"`
}

func handlePaymentConfig(cfg PaymentConfigResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, cfg)
	}
}
