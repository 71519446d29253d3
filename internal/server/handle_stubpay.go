package server

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/stanadevale/trailrace/internal/payment"
	"github.com/stanadevale/trailrace/internal/payment/stub"
	"github.com/stanadevale/trailrace/internal/registration"
)

var stubCheckoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html lang="ro">
<head><meta charset="utf-8"><title>Test checkout</title></head>
<body>
<h1>Plată de test / Test payment</h1>
<p>Intent <code>{{.ID}}</code>: {{.Amount}} {{.Currency}}</p>
<p>Status: <strong>{{.Status}}</strong></p>
{{if not .Paid}}
<form method="post" action="/pay/stub">
<input type="hidden" name="intent" value="{{.ID}}">
<button type="submit">Plătește / Pay</button>
</form>
{{end}}
</body>
</html>
`))

type stubCheckoutView struct {
	ID       string
	Amount   string
	Currency string
	Status   payment.IntentStatus
	Paid     bool
}

// handleStubCheckout renders the hosted page of the stub provider.
func handleStubCheckout(p *stub.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := p.GetIntent(r.Context(), r.URL.Query().Get("intent"))
		if errors.Is(err, payment.ErrUnknownIntent) {
			http.Error(w, "unknown payment intent", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		stubCheckoutPage.Execute(w, stubCheckoutView{
			ID:       in.ID,
			Amount:   fmt.Sprintf("%.2f", payment.MajorUnits(in.Amount)),
			Currency: strings.ToUpper(in.Currency),
			Status:   in.Status,
			Paid:     in.Succeeded(),
		})
	}
}

// handleStubPay completes the intent, confirms its participant and sends
// the browser back to the site the way a real provider redirect would.
func handleStubPay(logger *slog.Logger, p *stub.Provider, svc *registration.Service, broker *Broker, publicURL string) http.HandlerFunc {
	base := strings.TrimRight(publicURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PostFormValue("intent")
		if _, err := p.Complete(id); err != nil {
			http.Error(w, "unknown payment intent", http.StatusNotFound)
			return
		}

		c, err := svc.ConfirmByIntent(r.Context(), id)
		if err != nil {
			logger.Error("confirming stub payment", "intent_id", id, "error", err)
			http.Redirect(w, r, base+"/payment-failed?payment_intent="+url.QueryEscape(id), http.StatusSeeOther)
			return
		}
		publishConfirmation(broker, c)

		target := fmt.Sprintf("%s/payment-success?participantId=%d&payment_intent=%s",
			base, c.Participant.ID, url.QueryEscape(id))
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}
