package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/internal/dto/response"
	"service-marketplace/internal/paymentmethod"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/cache"
	"service-marketplace/pkg/gateway"
	"service-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	msgWebhookProcessed    = "Webhook processed"
	msgWebhookDuplicate    = "Webhook already processed"
	msgWebhookAcknowledged = "Webhook acknowledged"
	msgWebhookStale        = "Webhook acknowledged without state change"
)

type WebhookService interface {
	// HandleGatewayWebhook authenticates, parses and applies one invoice
	// callback. Once the payload is accepted the work no longer follows
	// ctx cancellation.
	HandleGatewayWebhook(ctx context.Context, token string, body []byte) (*response.WebhookResponse, error)
}

type webhookService struct {
	repo     *repository.Repository
	sm       *stateMachine
	notifier *notifier
	dedup    cache.Deduplicator
	codec    *entity.ExternalIDCodec
	token    string
	log      *zap.Logger
}

func NewWebhookService(repo *repository.Repository, sm *stateMachine, notifier *notifier, dedup cache.Deduplicator,
	codec *entity.ExternalIDCodec, token string, log *zap.Logger) WebhookService {
	return &webhookService{
		repo:     repo,
		sm:       sm,
		notifier: notifier,
		dedup:    dedup,
		codec:    codec,
		token:    token,
		log:      log.With(zap.String("service", "webhook")),
	}
}

// eventTargets maps settlement events to the payment status they request.
var eventTargets = map[gateway.EventKind]entity.PaymentStatus{
	gateway.EventPaid:       entity.PaymentStatusCompleted,
	gateway.EventExpired:    entity.PaymentStatusCancelled,
	gateway.EventFailed:     entity.PaymentStatusFailed,
	gateway.EventPending:    entity.PaymentStatusPending,
	gateway.EventProcessing: entity.PaymentStatusProcessing,
}

// reconciliation is the result of one delivery inside the transaction.
type reconciliation struct {
	booking *entity.Booking
	payment *entity.Payment
	outcome entity.WebhookOutcome
	detail  string
	changes changeSet
}

func (s *webhookService) HandleGatewayWebhook(ctx context.Context, token string, body []byte) (*response.WebhookResponse, error) {
	if s.token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		s.log.Warn("Webhook rejected, invalid callback token", zap.String("token", utils.MaskSecret(token)))
		return nil, apperror.Unauthorized("Invalid callback token")
	}

	event, err := gateway.DecodeWebhook(body)
	if err != nil {
		s.log.Warn("Webhook rejected, malformed payload", zap.Error(err))
		return nil, apperror.InvalidWebhook(err)
	}
	if errs := utils.ValidateStruct(event); len(errs) > 0 {
		s.log.Warn("Webhook rejected, missing fields", zap.Any("errors", errs))
		return nil, apperror.InvalidWebhook(errors.New(utils.FormatValidationErrors(errs)))
	}

	bookingID, paymentID, err := s.codec.Parse(event.Data.ExternalID)
	if err != nil {
		s.log.Warn("Webhook rejected, unknown external_id", zap.String("external_id", event.Data.ExternalID))
		return nil, apperror.InvalidExternalID(event.Data.ExternalID)
	}

	// accepted: from here on a client disconnect must not half-apply
	ctx = context.WithoutCancel(ctx)
	ctx, span := otel.Tracer("usecase").Start(ctx, "webhook.HandleGatewayWebhook")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.event", event.Event),
		attribute.String("webhook.external_id", event.Data.ExternalID),
		attribute.String("booking.id", bookingID.String()),
	)

	kind := event.Kind()
	dedupKey := event.DedupKey()

	if resp, ok := s.fromDedup(ctx, dedupKey, event, bookingID); ok {
		webhookOutcomes.WithLabelValues(kind.String(), string(entity.WebhookOutcomeDuplicate)).Inc()
		return resp, nil
	}

	var result *reconciliation
	err = s.repo.Tx.WithBookingLock(ctx, bookingID, func(repo *repository.Repository) error {
		r, err := s.reconcile(ctx, repo, event, bookingID, paymentID)
		if err != nil {
			return err
		}
		if err := s.record(ctx, repo, event, body, r); err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok && appErr.Kind == apperror.KindNotFound {
			s.log.Warn("Webhook for unknown booking or payment",
				zap.Error(err),
				zap.String("external_id", event.Data.ExternalID),
				zap.String("event", event.Event),
			)
			return nil, err
		}
		s.log.Error("Failed to apply webhook",
			zap.Error(err),
			zap.String("external_id", event.Data.ExternalID),
			zap.String("event", event.Event),
		)
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Internal(err)
	}

	if err := s.dedup.Remember(ctx, dedupKey); err != nil {
		s.log.Warn("Failed to store webhook dedup marker", zap.Error(err), zap.String("key", dedupKey))
	}
	s.notifier.publish(ctx, result.changes)
	webhookOutcomes.WithLabelValues(kind.String(), string(result.outcome)).Inc()

	s.log.Info("Webhook handled",
		zap.String("external_id", event.Data.ExternalID),
		zap.String("event", event.Event),
		zap.String("outcome", string(result.outcome)),
		zap.String("payment_status", string(result.payment.Status)),
		zap.String("booking_status", string(result.booking.Status)),
	)

	return &response.WebhookResponse{
		Message:       outcomeMessage(result.outcome),
		ExternalID:    event.Data.ExternalID,
		Event:         event.Event,
		PaymentStatus: string(result.payment.Status),
		BookingStatus: string(result.booking.Status),
	}, nil
}

func outcomeMessage(outcome entity.WebhookOutcome) string {
	switch outcome {
	case entity.WebhookOutcomeApplied:
		return msgWebhookProcessed
	case entity.WebhookOutcomeDuplicate:
		return msgWebhookDuplicate
	case entity.WebhookOutcomeStale:
		return msgWebhookStale
	default:
		return msgWebhookAcknowledged
	}
}

// fromDedup answers a delivery already applied, according to the cache,
// with the current statuses. Any miss or error falls through to the
// transactional path.
func (s *webhookService) fromDedup(ctx context.Context, key string, event *gateway.WebhookEvent, bookingID uuid.UUID) (*response.WebhookResponse, bool) {
	seen, err := s.dedup.Seen(ctx, key)
	if err != nil {
		s.log.Warn("Webhook dedup lookup failed", zap.Error(err), zap.String("key", key))
		return nil, false
	}
	if !seen {
		return nil, false
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil || booking == nil {
		return nil, false
	}
	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil || payment == nil {
		return nil, false
	}

	s.log.Info("Duplicate webhook delivery skipped",
		zap.String("key", key),
		zap.String("external_id", event.Data.ExternalID),
	)
	return &response.WebhookResponse{
		Message:       msgWebhookDuplicate,
		ExternalID:    event.Data.ExternalID,
		Event:         event.Event,
		PaymentStatus: string(payment.Status),
		BookingStatus: string(booking.Status),
	}, true
}

// resolvePayment finds the payment by invoice id, falling back to the
// booking's PENDING payment when the id was never stored, and adopts the
// invoice id in that case. A settled payment is found by the id carried
// in the external id when the delivery has no invoice id.
func (s *webhookService) resolvePayment(ctx context.Context, repo *repository.Repository, event *gateway.WebhookEvent,
	bookingID, paymentID uuid.UUID) (*entity.Payment, error) {
	invoiceID := event.Data.ID
	if invoiceID != "" {
		p, err := repo.Payment.FindByBookingAndTransaction(ctx, bookingID, invoiceID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	p, err := repo.Payment.FindPendingByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// already settled, let the state machine judge the event
		return s.paymentFromExternalID(ctx, repo, bookingID, paymentID, invoiceID)
	}

	if p.ID != paymentID {
		s.log.Warn("Webhook external_id names a different payment than the pending one",
			zap.String("external_payment_id", paymentID.String()),
			zap.String("payment_id", p.ID.String()),
		)
	}
	if invoiceID == "" || p.HasTransaction(invoiceID) {
		return p, nil
	}

	if p.TransactionID != nil {
		s.log.Warn("Replacing payment transaction id from webhook",
			zap.String("payment_id", p.ID.String()),
			zap.String("old_transaction_id", *p.TransactionID),
			zap.String("transaction_id", invoiceID),
		)
	} else {
		s.log.Info("Adopting invoice id from webhook",
			zap.String("payment_id", p.ID.String()),
			zap.String("transaction_id", invoiceID),
		)
	}
	if err := repo.Payment.SetTransactionID(ctx, p.ID, invoiceID); err != nil {
		return nil, err
	}
	p.TransactionID = &invoiceID
	return p, nil
}

// paymentFromExternalID loads the payment named by the external id when
// it belongs to the booking and the delivery names no other invoice. It
// never adopts an invoice id.
func (s *webhookService) paymentFromExternalID(ctx context.Context, repo *repository.Repository,
	bookingID, paymentID uuid.UUID, invoiceID string) (*entity.Payment, error) {
	if invoiceID != "" {
		return nil, apperror.PaymentNotFound(paymentID.String())
	}
	p, err := repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.BookingID != bookingID {
		return nil, apperror.PaymentNotFound(paymentID.String())
	}
	return p, nil
}

func (s *webhookService) reconcile(ctx context.Context, repo *repository.Repository, event *gateway.WebhookEvent,
	bookingID, paymentID uuid.UUID) (*reconciliation, error) {
	booking, err := repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperror.BookingNotFound(bookingID.String())
	}

	payment, err := s.resolvePayment(ctx, repo, event, bookingID, paymentID)
	if err != nil {
		return nil, err
	}

	r := &reconciliation{booking: booking, payment: payment}

	var label string
	if method := event.Data.Method(); method != nil {
		label = paymentmethod.Label(*method)
	}

	kind := event.Kind()
	target, settles := eventTargets[kind]
	if !settles {
		r.outcome = entity.WebhookOutcomeIgnored
		r.detail = "unhandled event " + event.Event
		return r, s.storeLabel(ctx, repo, payment, label)
	}

	if err := s.sm.checkPayment(booking, payment, target, entity.CausePaymentWebhook); err != nil {
		if !apperror.HasCode(err, apperror.CodeIllegalTransition) {
			return nil, err
		}
		r.outcome = entity.WebhookOutcomeStale
		r.detail = err.Error()

		fields := []zap.Field{
			zap.String("payment_id", payment.ID.String()),
			zap.String("payment_status", string(payment.Status)),
			zap.String("booking_status", string(booking.Status)),
			zap.String("event", event.Event),
		}
		if kind == gateway.EventPaid &&
			(payment.Status == entity.PaymentStatusCancelled || payment.Status == entity.PaymentStatusFailed) {
			s.log.Error("Paid event for a closed payment, manual review needed", fields...)
		} else {
			s.log.Warn("Stale webhook event not applied", fields...)
		}
		return r, nil
	}

	if payment.Status == target {
		r.outcome = entity.WebhookOutcomeDuplicate
		return r, s.storeLabel(ctx, repo, payment, label)
	}

	// the first move into COMPLETED records the method actually used
	if label != "" && (payment.PaymentMethod == nil || target == entity.PaymentStatusCompleted) {
		payment.PaymentMethod = &label
	}
	if _, err := s.sm.movePayment(ctx, repo, booking, payment, target, entity.CausePaymentWebhook, &r.changes); err != nil {
		return nil, err
	}
	r.outcome = entity.WebhookOutcomeApplied
	return r, nil
}

// storeLabel fills in a missing payment-method label without touching
// the status.
func (s *webhookService) storeLabel(ctx context.Context, repo *repository.Repository, payment *entity.Payment, label string) error {
	if label == "" || payment.PaymentMethod != nil {
		return nil
	}
	payment.PaymentMethod = &label
	payment.UpdatedAt = s.sm.now()
	return repo.Payment.Update(ctx, payment)
}

func (s *webhookService) record(ctx context.Context, repo *repository.Repository, event *gateway.WebhookEvent, body []byte, r *reconciliation) error {
	row := &entity.WebhookEvent{
		ID:         uuid.New(),
		ExternalID: event.Data.ExternalID,
		EventType:  event.Event,
		BookingID:  r.booking.ID,
		PaymentID:  &r.payment.ID,
		Outcome:    r.outcome,
		Payload:    json.RawMessage(body),
		ReceivedAt: s.sm.now(),
	}
	if event.ID != "" {
		row.GatewayEventID = &event.ID
	}
	if r.detail != "" {
		row.Detail = &r.detail
	}
	return repo.WebhookEvent.Create(ctx, row)
}
