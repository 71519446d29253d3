package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/stanadevale/trailrace/internal/payment"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/store"
)

// ErrorResponse is returned for all error responses. Fields is set for
// validation failures and maps JSON field names to messages.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeServiceError translates domain errors to HTTP. Anything it does not
// recognise is logged and reported as a generic failure.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		verr *registration.ValidationError
		perr *payment.ProviderError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, payment.ErrUnknownIntent):
		writeError(w, http.StatusNotFound, "payment intent not found")
	case errors.Is(err, registration.ErrNotPending):
		writeError(w, http.StatusConflict, "participant is not pending")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict, please retry")
	case errors.Is(err, registration.ErrPaymentNotCompleted):
		writeError(w, http.StatusPaymentRequired, "payment not completed")
	case errors.Is(err, payment.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	case errors.As(err, &perr):
		logger.Warn("payment provider error", "provider", perr.Provider, "error", err)
		writeError(w, http.StatusBadGateway, perr.Message)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
