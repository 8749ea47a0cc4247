package wire

import (
	"service-marketplace/internal/adaptor"
	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(
	r chi.Router,
	adminHandler *adaptor.AdminPaymentHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))
		r.Use(middleware.RequireRole(log, string(entity.RoleAdmin)))

		r.Route("/payments/{id}", func(r chi.Router) {
			r.Get("/", adminHandler.GetPayment)
			r.Post("/approve", adminHandler.Approve)
			r.Post("/reject", adminHandler.Reject)
			r.Post("/refund", adminHandler.Refund)
		})

		r.Get("/webhook-events", adminHandler.ListWebhookEvents)
	})
}
