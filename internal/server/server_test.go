package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stanadevale/trailrace/internal/cache"
	"github.com/stanadevale/trailrace/internal/mail"
	"github.com/stanadevale/trailrace/internal/payment/stub"
	"github.com/stanadevale/trailrace/internal/registration"
	"github.com/stanadevale/trailrace/internal/store"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

const (
	testAdmin    = "organizer"
	testPassword = "munte-2025!"
)

type testEnv struct {
	handler http.Handler
	store   store.Store
	pay     *stub.Provider
	mailer  *mail.LogMailer
}

// newTestEnv wires the router over an in-memory store with one 33 km race
// (id 1) and one 10 km race (id 2).
func newTestEnv(t *testing.T, autoCapture bool) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, store.NewMemStore(), autoCapture)
}

// newSQLiteTestEnv is newTestEnv over a migrated database file.
func newSQLiteTestEnv(t *testing.T, autoCapture bool) *testEnv {
	t.Helper()
	st, closeStore, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "race.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { closeStore() })
	return newTestEnvWithStore(t, st, autoCapture)
}

func newTestEnvWithStore(t *testing.T, st store.Store, autoCapture bool) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return testNow }

	for _, r := range []trailrace.Race{
		{Name: trailrace.Localized{RO: "Cursa Vlădeasa", EN: "Vlădeasa Race"}, DistanceKm: 33, ElevationGainM: 1800,
			Difficulty: trailrace.DifficultyAdvanced, Date: time.Date(2025, 7, 19, 4, 0, 0, 0, time.UTC), Price: 160},
		{Name: trailrace.Localized{RO: "Cursa Poienii", EN: "Meadow Run"}, DistanceKm: 10, ElevationGainM: 450,
			Difficulty: trailrace.DifficultyBeginner, Date: time.Date(2025, 7, 19, 6, 0, 0, 0, time.UTC), Price: 90},
	} {
		if _, err := st.CreateRace(ctx, r); err != nil {
			t.Fatalf("CreateRace: %v", err)
		}
	}
	if _, err := EnsureAdmin(ctx, st, testAdmin, testPassword, testNow); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	pay := stub.New("whsec", "http://race.test", autoCapture)
	mailer := mail.NewLogMailer(logger, mail.Address{Email: "noreply@race.test"})
	svc := registration.NewService(st, pay, mailer, logger, registration.Options{
		Currency:       "ron",
		VerifyRedirect: true,
		Now:            now,
	})

	h := NewHandler(logger, Deps{
		Store:          st,
		Service:        svc,
		Payments:       pay,
		Mailer:         mailer,
		Cache:          cache.NewMemory(),
		Currency:       "ron",
		StubPay:        pay,
		OrganizerEmail: "contact@race.test",
		PublicURL:      "http://race.test",
		Now:            now,
	}, nil)

	return &testEnv{handler: h, store: st, pay: pay, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Username: testAdmin, Password: testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	return w.Result().Cookies()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func anaPop() registration.RegisterRequest {
	return registration.RegisterRequest{
		FirstName:   "Ana",
		LastName:    "Pop",
		Email:       "ana@example.com",
		Phone:       "0712345678",
		Country:     "RO",
		BirthDate:   "1983-03-15",
		Gender:      "F",
		RaceID:      1,
		AcceptTerms: true,
	}
}

func (e *testEnv) register(t *testing.T, req registration.RegisterRequest) trailrace.Participant {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/participants", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[trailrace.Participant](t, w)
}

func TestRegisterThenConfirmPayment(t *testing.T) {
	e := newTestEnv(t, true)

	req := anaPop()
	req.MedicalInfo = "astm"
	p := e.register(t, req)
	if !strings.HasPrefix(p.BibNumber, "33K-") {
		t.Errorf("bib = %q, want 33K- prefix", p.BibNumber)
	}
	if p.Status != trailrace.StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.Age != 42 {
		t.Errorf("age = %d, want 42", p.Age)
	}

	w := e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: p.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ConfirmResponse](t, w)
	if !resp.Success || resp.Participant.Status != trailrace.StatusConfirmed || resp.AlreadyConfirmed {
		t.Errorf("confirm response = %+v", resp)
	}

	w = e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: p.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("repeat confirm: expected 200, got %d", w.Code)
	}
	// The participant id is guessable, so the answer must not leak contact
	// or medical details.
	for _, field := range []string{`"email"`, `"phone"`, `"medicalInfo"`, "ana@example.com", "astm"} {
		if strings.Contains(w.Body.String(), field) {
			t.Errorf("repeat confirm exposes %s: %s", field, w.Body.String())
		}
	}
	if resp := decode[ConfirmResponse](t, w); !resp.AlreadyConfirmed || resp.Participant.Status != trailrace.StatusConfirmed {
		t.Errorf("repeat confirm response = %+v", resp)
	}

	// One registration receipt and one payment confirmation.
	if n := len(e.mailer.Sent()); n != 2 {
		t.Errorf("sent %d emails, want 2", n)
	}
}

func TestRegisterAlias(t *testing.T) {
	e := newTestEnv(t, true)
	req := anaPop()
	req.RaceID = 2

	w := e.do(t, http.MethodPost, "/api/register", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if p := decode[trailrace.Participant](t, w); p.BibNumber != "10K-1" {
		t.Errorf("bib = %q, want 10K-1", p.BibNumber)
	}
}

func TestRegisterErrors(t *testing.T) {
	e := newTestEnv(t, true)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantField  string
	}{
		{"unknown race", func() any { r := anaPop(); r.RaceID = 99; return r }(), http.StatusNotFound, ""},
		{"bad email", func() any { r := anaPop(); r.Email = "nope"; return r }(), http.StatusBadRequest, "email"},
		{"missing phone", func() any { r := anaPop(); r.Phone = ""; return r }(), http.StatusBadRequest, "phone"},
		{"bad gender", func() any { r := anaPop(); r.Gender = "X"; return r }(), http.StatusBadRequest, "gender"},
		{"not json", "just a string", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/api/participants", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantField != "" {
				resp := decode[ErrorResponse](t, w)
				if _, ok := resp.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %q", resp.Fields, tt.wantField)
				}
			}
		})
	}

	ps, _ := e.store.ListParticipants(context.Background(), trailrace.ParticipantFilter{}, testNow)
	if len(ps) != 0 {
		t.Errorf("persisted %d participants after failed registrations", len(ps))
	}
}

func TestPaymentIntentThenConfirmByIntent(t *testing.T) {
	e := newTestEnv(t, true)
	p := e.register(t, anaPop())

	w := e.do(t, http.MethodPost, "/api/create-payment-intent", registration.IntentRequest{Amount: 160, RaceID: 1, ParticipantID: p.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("create intent: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	intent := decode[registration.IntentResult](t, w)
	if intent.ClientSecret == "" || intent.PaymentIntentID == "" {
		t.Fatalf("intent = %+v", intent)
	}

	w = e.do(t, http.MethodPost, "/api/confirm-payment-by-intent", ConfirmByIntentRequest{PaymentIntentID: intent.PaymentIntentID})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm by intent: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[IntentConfirmResponse](t, w)
	if resp.Participant.ID != p.ID || resp.Participant.Status != trailrace.StatusConfirmed {
		t.Errorf("confirm response = %+v", resp)
	}
	if resp.Participant.Email != "ana@example.com" {
		t.Errorf("intent holder should get the full record, email = %q", resp.Participant.Email)
	}

	// A confirmed participant cannot be charged again.
	w = e.do(t, http.MethodPost, "/api/create-payment-intent", registration.IntentRequest{RaceID: 1, ParticipantID: p.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("second intent: expected 409, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/confirm-payment-by-intent", ConfirmByIntentRequest{PaymentIntentID: "pi_unknown"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown intent: expected 404, got %d", w.Code)
	}
}

func TestStubCheckoutCompletesPayment(t *testing.T) {
	e := newTestEnv(t, false)
	p := e.register(t, anaPop())

	w := e.do(t, http.MethodPost, "/api/create-payment-intent", registration.IntentRequest{RaceID: 1, ParticipantID: p.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("create intent: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	intent := decode[registration.IntentResult](t, w)

	w = e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: p.ID})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("confirm before paying: expected 402, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/pay/stub?intent="+url.QueryEscape(intent.PaymentIntentID), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "160.00 RON") {
		t.Fatalf("checkout page: %d %s", w.Code, w.Body.String())
	}

	form := url.Values{"intent": {intent.PaymentIntentID}}
	req := httptest.NewRequest(http.MethodPost, "/pay/stub", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("pay: expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "/payment-success?participantId="+itoa(p.ID)) {
		t.Errorf("redirect = %q", loc)
	}
	got, _ := e.store.GetParticipant(context.Background(), p.ID)
	if got.Status != trailrace.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", got.Status)
	}
}

func TestPaymentWebhook(t *testing.T) {
	e := newTestEnv(t, false)
	p := e.register(t, anaPop())
	w := e.do(t, http.MethodPost, "/api/create-payment-intent", registration.IntentRequest{RaceID: 1, ParticipantID: p.ID})
	intent := decode[registration.IntentResult](t, w)

	send := func(sig string) *httptest.ResponseRecorder {
		body := stub.WebhookBody(intent.PaymentIntentID, "succeeded")
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
		if sig == "" {
			sig = e.pay.Sign(body)
		}
		req.Header.Set("X-Signature", sig)
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, req)
		return rec
	}

	if w := send("bad"); w.Code != http.StatusBadRequest {
		t.Errorf("forged webhook: expected 400, got %d", w.Code)
	}
	w = send("")
	if w.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "ana@example.com") {
		t.Errorf("webhook response exposes email: %s", w.Body.String())
	}
	if resp := decode[ConfirmResponse](t, w); resp.Participant.Status != trailrace.StatusConfirmed {
		t.Errorf("webhook response = %+v", resp)
	}
}

func TestPaymentWebhookForCancelledParticipantIsAcknowledged(t *testing.T) {
	e := newTestEnv(t, true)
	p := e.register(t, anaPop())
	w := e.do(t, http.MethodPost, "/api/create-payment-intent", registration.IntentRequest{RaceID: 1, ParticipantID: p.ID})
	intent := decode[registration.IntentResult](t, w)

	if w := e.do(t, http.MethodPost, "/api/participants/"+itoa(p.ID)+"/cancel", nil, e.login(t)...); w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := stub.WebhookBody(intent.PaymentIntentID, "succeeded")
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("X-Signature", e.pay.Sign(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	// Anything but 2xx makes the provider redeliver the event.
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[map[string]bool](t, rec); !got["received"] {
		t.Errorf("webhook response = %v", got)
	}
	got, _ := e.store.GetParticipant(context.Background(), p.ID)
	if got.Status != trailrace.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

// TestSQLiteRegistrationFlow runs the public flow against the database
// store, whose timestamp columns come back from the driver as time.Time.
func TestSQLiteRegistrationFlow(t *testing.T) {
	e := newSQLiteTestEnv(t, true)

	w := e.do(t, http.MethodGet, "/api/races/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get race: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if r := decode[trailrace.Race](t, w); !r.Date.Equal(time.Date(2025, 7, 19, 4, 0, 0, 0, time.UTC)) {
		t.Errorf("race date = %v", r.Date)
	}

	p := e.register(t, anaPop())
	if p.BibNumber != "33K-1" || p.Age != 42 {
		t.Errorf("registered = %+v", p)
	}
	if !p.RegistrationDate.Equal(testNow) {
		t.Errorf("registration date = %v, want %v", p.RegistrationDate, testNow)
	}

	w = e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: p.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[ConfirmResponse](t, w); resp.AlreadyConfirmed || resp.Participant.Status != trailrace.StatusConfirmed {
		t.Errorf("confirm response = %+v", resp)
	}

	w = e.do(t, http.MethodGet, "/api/participants?status=confirmed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	roster := decode[[]PublicParticipant](t, w)
	if len(roster) != 1 || roster[0].Category != "F40" {
		t.Errorf("roster = %+v", roster)
	}

	stored, err := e.store.GetParticipant(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if !stored.BirthDate.Equal(time.Date(1983, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("birth date = %v", stored.BirthDate)
	}

	cookies := e.login(t)
	if w := e.do(t, http.MethodGet, "/api/admin/me", nil, cookies...); w.Code != http.StatusOK {
		t.Errorf("admin me: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListParticipantsFilters(t *testing.T) {
	e := newTestEnv(t, true)
	ana := e.register(t, anaPop())

	ion := anaPop()
	ion.FirstName, ion.LastName, ion.Email, ion.Gender, ion.BirthDate, ion.Country = "Ion", "Ionescu", "ion@example.com", "M", "1990-01-01", "MD"
	e.register(t, ion)

	marc := anaPop()
	marc.FirstName, marc.LastName, marc.Email, marc.Gender, marc.BirthDate, marc.RaceID = "Marc", "Dubois", "marc@example.com", "M", "1953-05-01", 2
	e.register(t, marc)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ana", "Ion", "Marc"}},
		{"?country=RO", []string{"Ana", "Marc"}},
		{"?raceId=1", []string{"Ana", "Ion"}},
		{"?gender=m", []string{"Ion", "Marc"}},
		{"?category=F40", []string{"Ana"}},
		{"?category=M70%2B", []string{"Marc"}},
		{"?search=ionesc", []string{"Ion"}},
		{"?country=RO&raceId=1", []string{"Ana"}},
		{"?status=confirmed", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/api/participants"+tt.query, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			got := decode[[]PublicParticipant](t, w)
			var names []string
			for _, p := range got {
				names = append(names, p.FirstName)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}

	w := e.do(t, http.MethodGet, "/api/participants?gender=X", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad gender: expected 400, got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/participants/"+itoa(ana.ID), nil)
	if strings.Contains(w.Body.String(), "ana@example.com") || strings.Contains(w.Body.String(), "0712345678") {
		t.Errorf("public participant leaks contact details: %s", w.Body.String())
	}
	if p := decode[PublicParticipant](t, w); p.Category != "F40" {
		t.Errorf("category = %q, want F40", p.Category)
	}
}

func TestParticipantQR(t *testing.T) {
	e := newTestEnv(t, true)
	p := e.register(t, anaPop())

	w := e.do(t, http.MethodGet, "/api/participants/"+itoa(p.ID)+"/qr.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("body is not a PNG")
	}

	if w := e.do(t, http.MethodGet, "/api/participants/999/qr.png", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown participant: expected 404, got %d", w.Code)
	}
}

func TestRacesLocalizedAndCached(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodGet, "/api/races?lang=en", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}
	races := decode[[]RaceResponse](t, w)
	if len(races) != 2 || races[0].NameText != "Meadow Run" || races[1].BibPrefix != "33K" {
		t.Errorf("races = %+v", races)
	}

	w = e.do(t, http.MethodGet, "/api/races?lang=en", nil)
	if got := w.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/races/1", nil)
	req.Header.Set("Accept-Language", "ro-RO,ro;q=0.9")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if r := decode[RaceResponse](t, rec); r.NameText != "Cursa Vlădeasa" {
		t.Errorf("nameText = %q", r.NameText)
	}
	if got := rec.Header().Get("Content-Language"); got != "ro" {
		t.Errorf("Content-Language = %q", got)
	}

	cookies := e.login(t)
	img := "/images/33k-new.jpg"
	w = e.do(t, http.MethodPatch, "/api/races/1", trailrace.RaceUpdate{ImageURL: &img}, cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/races?lang=en", nil)
	if got := w.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("X-Cache after update = %q, want miss", got)
	}
	if !strings.Contains(w.Body.String(), img) {
		t.Error("list does not reflect the new image")
	}

	if w := e.do(t, http.MethodGet, "/api/races?difficulty=extreme", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad difficulty: expected 400, got %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/races/42", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown race: expected 404, got %d", w.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	e := newTestEnv(t, true)
	img := "/x.jpg"

	protected := []struct {
		method, path string
		body         any
	}{
		{http.MethodPatch, "/api/races/1", trailrace.RaceUpdate{ImageURL: &img}},
		{http.MethodPost, "/api/races", CreateRaceRequest{}},
		{http.MethodPost, "/api/participants/1/cancel", nil},
		{http.MethodGet, "/api/contact", nil},
		{http.MethodPost, "/api/test-email", TestEmailRequest{To: "a@b.ro"}},
		{http.MethodGet, "/api/admin/me", nil},
	}
	for _, p := range protected {
		if w := e.do(t, p.method, p.path, p.body); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without session: expected 401, got %d", p.method, p.path, w.Code)
		}
	}

	w := e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Username: testAdmin, Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/admin/login", AdminLoginRequest{Username: "nobody", Password: testPassword})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: expected 401, got %d", w.Code)
	}

	cookies := e.login(t)
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == adminCookieName {
			session = c
		}
	}
	if session == nil || !session.HttpOnly || session.Value == "" {
		t.Fatalf("session cookie = %+v", session)
	}

	w = e.do(t, http.MethodGet, "/api/admin/me", nil, session)
	if w.Code != http.StatusOK || decode[AdminMeResponse](t, w).Username != testAdmin {
		t.Errorf("me: %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/races", CreateRaceRequest{
		Name:       trailrace.Localized{RO: "Cursa copiilor", EN: "Kids run"},
		Distance:   2,
		Difficulty: trailrace.DifficultyBeginner,
		Date:       time.Date(2025, 7, 20, 8, 0, 0, 0, time.UTC),
		Price:      0,
	}, session)
	if w.Code != http.StatusCreated {
		t.Errorf("create race: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/api/races", CreateRaceRequest{Name: trailrace.Localized{EN: "x"}, Difficulty: "hard"}, session)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid race: expected 400, got %d", w.Code)
	}

	e.do(t, http.MethodPost, "/api/admin/logout", nil, session)
	if w := e.do(t, http.MethodGet, "/api/admin/me", nil, session); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestCancelParticipant(t *testing.T) {
	e := newTestEnv(t, true)
	p := e.register(t, anaPop())
	cookies := e.login(t)

	w := e.do(t, http.MethodPost, "/api/participants/"+itoa(p.ID)+"/cancel", nil, cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: p.ID})
	if w.Code != http.StatusConflict {
		t.Errorf("confirm cancelled: expected 409, got %d", w.Code)
	}
	w = e.do(t, http.MethodPost, "/api/confirm-payment", ConfirmByParticipantRequest{ParticipantID: 999})
	if w.Code != http.StatusNotFound {
		t.Errorf("confirm unknown: expected 404, got %d", w.Code)
	}
}

func TestContact(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodPost, "/api/contact", ContactRequest{
		Name:    "Maria",
		Email:   "maria@example.com",
		Subject: "Cazare",
		Message: "Există locuri de cazare la cabană?",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[ContactResponse](t, w); !resp.Success || resp.ID == 0 {
		t.Errorf("response = %+v", resp)
	}

	sent := e.mailer.Sent()
	if len(sent) != 1 || sent[0].To.Email != "contact@race.test" || sent[0].ReplyTo == nil || sent[0].ReplyTo.Email != "maria@example.com" {
		t.Errorf("forwarded = %+v", sent)
	}

	w = e.do(t, http.MethodPost, "/api/contact", ContactRequest{Name: "M", Email: "bad", Message: "short"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid: expected 400, got %d", w.Code)
	}
	fields := decode[ErrorResponse](t, w).Fields
	for _, f := range []string{"name", "email", "subject", "message"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("missing field error for %q in %v", f, fields)
		}
	}

	w = e.do(t, http.MethodGet, "/api/contact", nil, e.login(t)...)
	if got := decode[[]trailrace.ContactInquiry](t, w); len(got) != 1 || got[0].Subject != "Cazare" {
		t.Errorf("inquiries = %+v", got)
	}
}

func TestEmailDiagnostics(t *testing.T) {
	e := newTestEnv(t, true)

	w := e.do(t, http.MethodGet, "/api/email-status", nil)
	if st := decode[mail.Status](t, w); st.Provider != "log" || st.Configured {
		t.Errorf("status = %+v", st)
	}

	cookies := e.login(t)
	w = e.do(t, http.MethodPost, "/api/test-email", TestEmailRequest{To: "ops@race.test"}, cookies...)
	if w.Code != http.StatusOK || !decode[TestEmailResponse](t, w).Success {
		t.Errorf("test email: %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/test-email", TestEmailRequest{To: "nope"}, cookies...); w.Code != http.StatusBadRequest {
		t.Errorf("invalid recipient: expected 400, got %d", w.Code)
	}
}

func TestStaticContentEndpoints(t *testing.T) {
	e := newTestEnv(t, true)
	ctx := context.Background()
	e.store.CreateFAQ(ctx, trailrace.FAQ{Order: 1,
		Question: trailrace.Localized{RO: "Întrebare?", EN: "Question?"},
		Answer:   trailrace.Localized{RO: "Răspuns.", EN: "Answer."}})
	e.store.CreateProgramEvent(ctx, trailrace.ProgramEvent{Day: "2025-07-19", StartTime: "07:00",
		Title: trailrace.Localized{RO: "Start", EN: "Start"}})
	e.store.CreateSponsor(ctx, trailrace.Sponsor{Name: "Apele Bihorului", Level: trailrace.SponsorPlatinum,
		Description: trailrace.Localized{RO: "Apă", EN: "Water"}})

	w := e.do(t, http.MethodGet, "/api/faqs?lang=en", nil)
	if faqs := decode[[]FAQResponse](t, w); len(faqs) != 1 || faqs[0].QuestionText != "Question?" {
		t.Errorf("faqs = %+v", faqs)
	}
	w = e.do(t, http.MethodGet, "/api/program", nil)
	if events := decode[[]ProgramEventResponse](t, w); len(events) != 1 || events[0].TitleText != "Start" {
		t.Errorf("program = %+v", events)
	}
	w = e.do(t, http.MethodGet, "/api/sponsors?lang=ro", nil)
	if sponsors := decode[[]SponsorResponse](t, w); len(sponsors) != 1 || sponsors[0].DescriptionText != "Apă" {
		t.Errorf("sponsors = %+v", sponsors)
	}
	w = e.do(t, http.MethodGet, "/api/age-categories", nil)
	if bands := decode[[]trailrace.AgeBand](t, w); len(bands) != 16 {
		t.Errorf("got %d age bands, want 16", len(bands))
	}
	w = e.do(t, http.MethodGet, "/api/payment-config", nil)
	if cfg := decode[PaymentConfigResponse](t, w); cfg.Provider != "stub" || cfg.Currency != "ron" {
		t.Errorf("payment config = %+v", cfg)
	}
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	e := newTestEnv(t, true)
	w := e.do(t, http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if decode[ErrorResponse](t, w).Error == "" {
		t.Error("expected JSON error body")
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
