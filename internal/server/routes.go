package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Stâna de Vale Trail Race API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/races", handleListRaces(logger, d.Store, d.Cache))
		r.Get("/races/{id}", handleGetRace(logger, d.Store))

		r.Get("/participants", handleListParticipants(logger, d.Store, d.Now))
		r.Get("/participants/{id}", handleGetParticipant(logger, d.Store, d.Now))
		r.Get("/roster/events", handleRosterEvents(broker))
		r.Get("/participants/{id}/qr.png", handleParticipantQR(logger, d.Store, d.PublicURL))
		r.Post("/participants", handleRegister(logger, d.Service, broker))
		r.Post("/register", handleRegister(logger, d.Service, broker))

		r.Post("/create-payment-intent", handleCreatePaymentIntent(logger, d.Service))
		r.Post("/confirm-payment-by-intent", handleConfirmByIntent(logger, d.Service, broker))
		r.Post("/confirm-payment", handleConfirmByParticipant(logger, d.Service, broker, d.Now))
		r.Post("/webhooks/payment", handlePaymentWebhook(logger, d.Service, broker, d.Now))
		if d.Payments != nil {
			r.Get("/payment-config", handlePaymentConfig(PaymentConfigResponse{
				Provider:       d.Payments.Name(),
				PublishableKey: d.PublishableKey,
				Currency:       d.Currency,
			}))
		}

		r.Post("/contact", handleContact(logger, d.Store, d.Mailer, d.OrganizerEmail, d.Now))
		r.Get("/faqs", handleListFAQs(logger, d.Store, d.Cache))
		r.Get("/program", handleListProgram(logger, d.Store, d.Cache))
		r.Get("/sponsors", handleListSponsors(logger, d.Store, d.Cache))
		r.Get("/age-categories", handleAgeCategories())
		r.Get("/email-status", handleEmailStatus(d.Mailer))

		r.Post("/admin/login", handleAdminLogin(logger, d.Store, d.Now))
		r.Post("/admin/logout", handleAdminLogout(d.Store))
		r.Get("/admin/me", handleAdminMe(d.Store, d.Now))

		// Organizer routes, admin_session cookie required.
		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.Store, d.Now))
			r.Post("/races", handleCreateRace(logger, d.Store, d.Cache))
			r.Patch("/races/{id}", handleUpdateRace(logger, d.Store, d.Cache))
			r.Post("/participants/{id}/cancel", handleCancelParticipant(logger, d.Service, broker))
			r.Get("/contact", handleListInquiries(logger, d.Store))
			r.Post("/test-email", handleTestEmail(logger, d.Mailer))
		})

		r.NotFound(handleAPINotFound)
	})

	if d.StubPay != nil {
		r.Get("/pay/stub", handleStubCheckout(d.StubPay))
		r.Post("/pay/stub", handleStubPay(logger, d.StubPay, d.Service, broker, d.PublicURL))
	}

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
