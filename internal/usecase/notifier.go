package usecase

import (
	"context"
	"time"

	"service-marketplace/pkg/events"

	"go.uber.org/zap"
)

// notifier publishes committed payment changes. Publish failures are
// logged only; the ledger is already committed.
type notifier struct {
	publisher events.Publisher
	log       *zap.Logger
}

func (n *notifier) publish(ctx context.Context, changes changeSet) {
	for _, c := range changes {
		event := events.PaymentEvent{
			EventType:     events.EventPaymentStatusChanged,
			BookingID:     c.booking.ID.String(),
			PaymentID:     c.payment.ID.String(),
			PaymentStatus: string(c.payment.Status),
			BookingStatus: string(c.booking.Status),
			Cause:         string(c.cause),
			OccurredAt:    time.Now().UTC(),
		}
		if err := n.publisher.Publish(ctx, event); err != nil {
			n.log.Warn("Failed to publish payment event",
				zap.Error(err),
				zap.String("payment_id", event.PaymentID),
				zap.String("payment_status", event.PaymentStatus),
			)
		}
	}
}
