package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// ContentStore is the site content subset of the store.
type ContentStore interface {
	ListFAQs(ctx context.Context) ([]trailrace.FAQ, error)
	ListProgramEvents(ctx context.Context) ([]trailrace.ProgramEvent, error)
	ListSponsors(ctx context.Context) ([]trailrace.Sponsor, error)
}

type FAQResponse struct {
	trailrace.FAQ
	QuestionText string `json:"questionText"`
	AnswerText   string `json:"answerText"`
}

type ProgramEventResponse struct {
	trailrace.ProgramEvent
	TitleText       string `json:"titleText"`
	DescriptionText string `json:"descriptionText,omitempty"`
}

type SponsorResponse struct {
	trailrace.Sponsor
	DescriptionText string `json:"descriptionText,omitempty"`
}

func handleListFAQs(logger *slog.Logger, st ContentStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLanguage(w, r)
		serveCached(w, r, logger, c, nsFAQs, lang, func(ctx context.Context) (any, error) {
			faqs, err := st.ListFAQs(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]FAQResponse, 0, len(faqs))
			for _, f := range faqs {
				out = append(out, FAQResponse{FAQ: f, QuestionText: f.Question.In(lang), AnswerText: f.Answer.In(lang)})
			}
			return out, nil
		})
	}
}

func handleListProgram(logger *slog.Logger, st ContentStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLanguage(w, r)
		serveCached(w, r, logger, c, nsProgram, lang, func(ctx context.Context) (any, error) {
			events, err := st.ListProgramEvents(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]ProgramEventResponse, 0, len(events))
			for _, e := range events {
				out = append(out, ProgramEventResponse{
					ProgramEvent:    e,
					TitleText:       e.Title.In(lang),
					DescriptionText: e.Description.In(lang),
				})
			}
			return out, nil
		})
	}
}

func handleListSponsors(logger *slog.Logger, st ContentStore, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := requestLanguage(w, r)
		serveCached(w, r, logger, c, nsSponsors, lang, func(ctx context.Context) (any, error) {
			sponsors, err := st.ListSponsors(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]SponsorResponse, 0, len(sponsors))
			for _, s := range sponsors {
				out = append(out, SponsorResponse{Sponsor: s, DescriptionText: s.Description.In(lang)})
			}
			return out, nil
		})
	}
}

func handleAgeCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, trailrace.AgeCategories())
	}
}

// InquiryStore stores contact form submissions.
type InquiryStore interface {
	CreateContactInquiry(ctx context.Context, c trailrace.ContactInquiry) (trailrace.ContactInquiry, error)
	ListContactInquiries(ctx context.Context) ([]trailrace.ContactInquiry, error)
}

// ContactRequest is the body of POST /api/contact.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

func (req *ContactRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	return registration.Validate(req)
}

// ContactResponse acknowledges a stored inquiry.
type ContactResponse struct {
	Success bool   `json:"success"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// handleContact stores the inquiry and forwards it to the organizer. The
// inquiry is kept even when forwarding fails.
func handleContact(logger *slog.Logger, st InquiryStore, mailer mail.Mailer, organizer string, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContactRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		c, err := st.CreateContactInquiry(r.Context(), trailrace.ContactInquiry{
			Name:      req.Name,
			Email:     req.Email,
			Subject:   req.Subject,
			Message:   req.Message,
			CreatedAt: now(),
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		if organizer != "" {
			if err := mailer.Send(r.Context(), mail.ContactForward(c, organizer)); err != nil {
				logger.Error("forwarding contact inquiry", "inquiry_id", c.ID, "error", err)
			}
		}

		writeJSON(w, http.StatusCreated, ContactResponse{
			Success: true,
			ID:      c.ID,
			Message: "Mulțumim! Vă vom răspunde în curând. / Thank you, we will get back to you soon.",
		})
	}
}

func handleListInquiries(logger *slog.Logger, st InquiryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := st.ListContactInquiries(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, cs)
	}
}
