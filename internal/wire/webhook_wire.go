package wire

import (
	"service-marketplace/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// The gateway authenticates with its callback token, checked in the
// usecase, so no session middleware here.
func wireWebhook(r chi.Router, webhookHandler *adaptor.WebhookHandler) {
	r.Post("/api/webhooks/payment", webhookHandler.PaymentWebhook)
}
