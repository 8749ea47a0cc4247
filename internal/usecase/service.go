package usecase

import (
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/pkg/cache"
	"service-marketplace/pkg/events"
	"service-marketplace/pkg/gateway"
	"service-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Transition   TransitionService
	Booking      BookingService
	Webhook      WebhookService
	AdminPayment AdminPaymentService
}

// Deps are the outside collaborators the usecases call.
type Deps struct {
	Gateway   gateway.Client
	Publisher events.Publisher
	Dedup     cache.Deduplicator
	Now       func() time.Time
}

func (d *Deps) defaults() {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Dedup == nil {
		d.Dedup = cache.NopDeduplicator{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	deps.defaults()
	codec := entity.NewExternalIDCodec(config.Gateway.ExternalIDPrefix)
	sm := &stateMachine{now: deps.Now, log: log.With(zap.String("service", "state_machine"))}
	notifier := &notifier{publisher: deps.Publisher, log: log.With(zap.String("service", "notifier"))}

	return &Service{
		Transition:   NewTransitionService(repo, sm, notifier, log),
		Booking:      NewBookingService(repo, deps.Gateway, codec, deps.Now, log),
		Webhook:      NewWebhookService(repo, sm, notifier, deps.Dedup, codec, config.Gateway.WebhookToken, log),
		AdminPayment: NewAdminPaymentService(repo, sm, notifier, log),
	}
}
