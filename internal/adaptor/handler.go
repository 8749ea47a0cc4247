package adaptor

import (
	"service-marketplace/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking      *BookingHandler
	Webhook      *WebhookHandler
	AdminPayment *AdminPaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:      NewBookingHandler(service.Booking, service.Transition, log),
		Webhook:      NewWebhookHandler(service.Webhook, log),
		AdminPayment: NewAdminPaymentHandler(service.AdminPayment, log),
	}
}
