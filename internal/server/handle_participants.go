package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// ParticipantStore is the participant read subset of the store.
type ParticipantStore interface {
	GetParticipant(ctx context.Context, id int64) (trailrace.Participant, error)
	ListParticipants(ctx context.Context, f trailrace.ParticipantFilter, now time.Time) ([]trailrace.Participant, error)
}

// PublicParticipant is a roster entry. Contact and medical details are
// only returned to the registrant.
type PublicParticipant struct {
	ID               int64            `json:"id"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Country          string           `json:"country"`
	Age              int              `json:"age"`
	Gender           trailrace.Gender `json:"gender"`
	Category         string           `json:"category,omitempty"`
	RaceID           int64            `json:"raceId"`
	BibNumber        string           `json:"bibNumber"`
	Status           trailrace.Status `json:"status"`
	IsEMAParticipant bool             `json:"isEmaParticipant"`
	RegistrationDate time.Time        `json:"registrationDate"`
}

func newPublicParticipant(p trailrace.Participant, now time.Time) PublicParticipant {
	age := p.Age
	if !p.BirthDate.IsZero() {
		age = trailrace.AgeAt(p.BirthDate, now)
	}
	return PublicParticipant{
		ID:               p.ID,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Country:          p.Country,
		Age:              age,
		Gender:           p.Gender,
		Category:         trailrace.AgeCategory(p.Gender, age),
		RaceID:           p.RaceID,
		BibNumber:        p.BibNumber,
		Status:           p.Status,
		IsEMAParticipant: p.IsEMAParticipant,
		RegistrationDate: p.RegistrationDate,
	}
}

// parseParticipantFilter reads the roster query parameters. Empty
// parameters match everything.
func parseParticipantFilter(q url.Values) (trailrace.ParticipantFilter, error) {
	var (
		f      trailrace.ParticipantFilter
		fields = map[string]string{}
	)
	if v := strings.TrimSpace(q.Get("raceId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			fields["raceId"] = "must be a positive integer"
		}
		f.RaceID = id
	}
	f.Country = strings.TrimSpace(q.Get("country"))
	f.Search = strings.TrimSpace(q.Get("search"))
	if v := strings.TrimSpace(q.Get("ema")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["ema"] = "must be true or false"
		}
		f.EMA = &b
	}
	if v := strings.ToUpper(strings.TrimSpace(q.Get("gender"))); v != "" {
		if v != string(trailrace.GenderMale) && v != string(trailrace.GenderFemale) {
			fields["gender"] = "must be one of: M, F"
		}
		f.Gender = trailrace.Gender(v)
	}
	f.Category = strings.ToUpper(strings.TrimSpace(q.Get("category")))
	if v := strings.ToLower(strings.TrimSpace(q.Get("status"))); v != "" {
		if !trailrace.Status(v).Valid() {
			fields["status"] = "must be one of: pending, confirmed, cancelled"
		}
		f.Status = trailrace.Status(v)
	}
	if len(fields) > 0 {
		return f, &registration.ValidationError{Fields: fields}
	}
	return f, nil
}

func handleListParticipants(logger *slog.Logger, st ParticipantStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseParticipantFilter(r.URL.Query())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		t := now()
		ps, err := st.ListParticipants(r.Context(), f, t)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		out := make([]PublicParticipant, 0, len(ps))
		for _, p := range ps {
			out = append(out, newPublicParticipant(p, t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetParticipant(logger *slog.Logger, st ParticipantStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		p, err := st.GetParticipant(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newPublicParticipant(p, now()))
	}
}

// handleParticipantQR renders a check-in code that opens the participant's
// page when scanned at bib pickup.
func handleParticipantQR(logger *slog.Logger, st ParticipantStore, publicURL string) http.HandlerFunc {
	base := strings.TrimRight(publicURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		p, err := st.GetParticipant(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		target := fmt.Sprintf("%s/check-in?participant=%d&bib=%s", base, p.ID, url.QueryEscape(p.BibNumber))
		png, err := qrcode.Encode(target, qrcode.Medium, 256)
		if err != nil {
			writeServiceError(w, logger, fmt.Errorf("encoding qr: %w", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	}
}

func handleRegister(logger *slog.Logger, svc *registration.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registration.RegisterRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reg, err := svc.Register(r.Context(), req)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		svc.SendRegistrationReceipt(r.Context(), reg)
		broker.Publish(newRosterEvent("registered", reg.Participant))

		writeJSON(w, http.StatusCreated, reg.Participant)
	}
}

func handleCancelParticipant(logger *slog.Logger, svc *registration.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		p, err := svc.Cancel(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		logger.Info("participant cancelled by admin", "participant_id", p.ID, "admin", adminFrom(r).Username)
		broker.Publish(newRosterEvent("cancelled", p))
		writeJSON(w, http.StatusOK, p)
	}
}
