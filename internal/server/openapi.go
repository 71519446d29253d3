package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/stanadevale/trailrace/internal/handler/health"
	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

type idPath struct {
	ID int64 `path:"id"`
}

type languageQuery struct {
	Lang           string `query:"lang" description:"ro, en, fr or de; overrides Accept-Language"`
	AcceptLanguage string `header:"Accept-Language"`
}

type listRacesQuery struct {
	languageQuery
	Difficulty string `query:"difficulty" enum:"beginner,intermediate,advanced,ultra"`
}

type listParticipantsQuery struct {
	RaceID   int64  `query:"raceId"`
	Country  string `query:"country"`
	Search   string `query:"search" description:"Case-insensitive match on first or last name"`
	EMA      bool   `query:"ema"`
	Gender   string `query:"gender" enum:"M,F"`
	Category string `query:"category" description:"Age category code such as M40 or F70+"`
	Status   string `query:"status" enum:"pending,confirmed,cancelled"`
}

type rosterEventsQuery struct {
	RaceID int64 `query:"raceId"`
}

type updateRaceRequest struct {
	idPath
	trailrace.RaceUpdate
}

type successResponse struct {
	Success bool `json:"success"`
}

type op struct {
	method, path, summary, description string
	req                                any
	resp                               []resp
}

type resp struct {
	status int
	body   any
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Stâna de Vale Trail Race API"
	r.Spec.Info.Version = "1.0.0"
	r.Spec.Info.WithDescription("Race information, registration, payments and site content for the Stâna de Vale Trail Race.")

	adminOnly := " Requires admin_session cookie."
	ops := []op{
		{http.MethodGet, "/healthz", "Health check", "Readiness of the store and optional dependencies. Degraded still answers 200.", nil,
			[]resp{{http.StatusOK, health.Report{}}, {http.StatusServiceUnavailable, health.Report{}}}},

		{http.MethodGet, "/api/races", "List races", "Races ordered by distance, optionally filtered by difficulty.", listRacesQuery{},
			[]resp{{http.StatusOK, []RaceResponse{}}, {http.StatusBadRequest, ErrorResponse{}}}},
		{http.MethodGet, "/api/races/{id}", "Get race", "", idPath{},
			[]resp{{http.StatusOK, RaceResponse{}}, {http.StatusNotFound, ErrorResponse{}}}},
		{http.MethodPost, "/api/races", "Create race", "Adds a race." + adminOnly, CreateRaceRequest{},
			[]resp{{http.StatusCreated, RaceResponse{}}, {http.StatusBadRequest, ErrorResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},
		{http.MethodPatch, "/api/races/{id}", "Update race media", "Sets the image or map of a race." + adminOnly, updateRaceRequest{},
			[]resp{{http.StatusOK, RaceResponse{}}, {http.StatusNotFound, ErrorResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},

		{http.MethodGet, "/api/participants", "List participants", "Public roster. Filters are combined with AND.", listParticipantsQuery{},
			[]resp{{http.StatusOK, []PublicParticipant{}}, {http.StatusBadRequest, ErrorResponse{}}}},
		{http.MethodGet, "/api/participants/{id}", "Get participant", "", idPath{},
			[]resp{{http.StatusOK, PublicParticipant{}}, {http.StatusNotFound, ErrorResponse{}}}},
		{http.MethodPost, "/api/participants", "Register participant", "Creates a pending registration with the next bib number of the race.", registration.RegisterRequest{},
			[]resp{{http.StatusCreated, trailrace.Participant{}}, {http.StatusBadRequest, ErrorResponse{}}, {http.StatusNotFound, ErrorResponse{}}}},
		{http.MethodPost, "/api/register", "Register participant (alias)", "Same as POST /api/participants.", registration.RegisterRequest{},
			[]resp{{http.StatusCreated, trailrace.Participant{}}, {http.StatusBadRequest, ErrorResponse{}}, {http.StatusNotFound, ErrorResponse{}}}},
		{http.MethodPost, "/api/participants/{id}/cancel", "Cancel registration", "Cancelling twice is a no-op." + adminOnly, idPath{},
			[]resp{{http.StatusOK, trailrace.Participant{}}, {http.StatusNotFound, ErrorResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},

		{http.MethodPost, "/api/create-payment-intent", "Create payment intent", "Opens a provider payment for a pending participant. Amount 0 charges the race price.", registration.IntentRequest{},
			[]resp{{http.StatusOK, registration.IntentResult{}}, {http.StatusBadRequest, ErrorResponse{}}, {http.StatusNotFound, ErrorResponse{}},
				{http.StatusConflict, ErrorResponse{}}, {http.StatusBadGateway, ErrorResponse{}}}},
		{http.MethodPost, "/api/confirm-payment-by-intent", "Confirm payment by intent", "Confirms the participant the intent was created for once the provider reports it as paid. Idempotent.", ConfirmByIntentRequest{},
			[]resp{{http.StatusOK, IntentConfirmResponse{}}, {http.StatusPaymentRequired, ErrorResponse{}}, {http.StatusNotFound, ErrorResponse{}}, {http.StatusConflict, ErrorResponse{}}}},
		{http.MethodPost, "/api/confirm-payment", "Confirm payment by participant", "Confirms a participant after the provider redirect. Idempotent.", ConfirmByParticipantRequest{},
			[]resp{{http.StatusOK, ConfirmResponse{}}, {http.StatusPaymentRequired, ErrorResponse{}}, {http.StatusNotFound, ErrorResponse{}}, {http.StatusConflict, ErrorResponse{}}}},
		{http.MethodPost, "/api/webhooks/payment", "Payment webhook", "Signed provider notification.", nil,
			[]resp{{http.StatusOK, ConfirmResponse{}}, {http.StatusBadRequest, ErrorResponse{}}}},
		{http.MethodGet, "/api/payment-config", "Payment configuration", "Provider name and publishable key for the checkout page.", nil,
			[]resp{{http.StatusOK, PaymentConfigResponse{}}}},

		{http.MethodPost, "/api/contact", "Send contact inquiry", "Stores the inquiry and forwards it to the organizers.", ContactRequest{},
			[]resp{{http.StatusCreated, ContactResponse{}}, {http.StatusBadRequest, ErrorResponse{}}}},
		{http.MethodGet, "/api/contact", "List contact inquiries", "Newest first." + adminOnly, nil,
			[]resp{{http.StatusOK, []trailrace.ContactInquiry{}}, {http.StatusUnauthorized, ErrorResponse{}}}},
		{http.MethodGet, "/api/faqs", "List FAQs", "", languageQuery{},
			[]resp{{http.StatusOK, []FAQResponse{}}}},
		{http.MethodGet, "/api/program", "Event program", "", languageQuery{},
			[]resp{{http.StatusOK, []ProgramEventResponse{}}}},
		{http.MethodGet, "/api/sponsors", "List sponsors", "", languageQuery{},
			[]resp{{http.StatusOK, []SponsorResponse{}}}},
		{http.MethodGet, "/api/age-categories", "Age categories", "Masters bands per gender.", nil,
			[]resp{{http.StatusOK, []trailrace.AgeBand{}}}},

		{http.MethodGet, "/api/email-status", "Email status", "Which email backend is configured.", nil,
			[]resp{{http.StatusOK, mail.Status{}}}},
		{http.MethodPost, "/api/test-email", "Send test email", "Sends a diagnostic message." + adminOnly, TestEmailRequest{},
			[]resp{{http.StatusOK, TestEmailResponse{}}, {http.StatusBadGateway, TestEmailResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},

		{http.MethodPost, "/api/admin/login", "Admin login", "Authenticate with username and password. Sets admin_session cookie.", AdminLoginRequest{},
			[]resp{{http.StatusOK, AdminMeResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},
		{http.MethodPost, "/api/admin/logout", "Admin logout", "Clears admin session and cookie.", nil,
			[]resp{{http.StatusOK, successResponse{}}}},
		{http.MethodGet, "/api/admin/me", "Current admin", "Returns the authenticated admin." + adminOnly, nil,
			[]resp{{http.StatusOK, AdminMeResponse{}}, {http.StatusUnauthorized, ErrorResponse{}}}},
	}

	for _, o := range ops {
		oc, err := r.NewOperationContext(o.method, o.path)
		if err != nil {
			continue
		}
		oc.SetSummary(o.summary)
		if o.description != "" {
			oc.SetDescription(o.description)
		}
		if o.req != nil {
			oc.AddReqStructure(o.req)
		}
		for _, rs := range o.resp {
			oc.AddRespStructure(rs.body, openapi.WithHTTPStatus(rs.status))
		}
		_ = r.AddOperation(oc)
	}

	// GET /api/participants/{id}/qr.png
	qr, _ := r.NewOperationContext(http.MethodGet, "/api/participants/{id}/qr.png")
	qr.SetSummary("Participant check-in QR code")
	qr.AddReqStructure(idPath{})
	qr.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/png"))
	qr.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(qr)

	// GET /api/roster/events
	events, _ := r.NewOperationContext(http.MethodGet, "/api/roster/events")
	events.SetSummary("Roster event stream")
	events.SetDescription("Server-Sent Events for registrations, confirmations and cancellations. Pass raceId to follow one race.")
	events.AddReqStructure(rosterEventsQuery{})
	events.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(events)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
