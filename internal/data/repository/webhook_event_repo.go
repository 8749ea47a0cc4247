package repository

import (
	"context"
	"fmt"

	"service-marketplace/internal/data/entity"
	"service-marketplace/pkg/database"

	"go.uber.org/zap"
)

type WebhookEventRepository interface {
	Create(ctx context.Context, event *entity.WebhookEvent) error
	FindAll(ctx context.Context, limit, offset int) ([]*entity.WebhookEvent, error)
	Count(ctx context.Context) (int64, error)
}

type webhookEventRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewWebhookEventRepository(db database.Querier, log *zap.Logger) WebhookEventRepository {
	return &webhookEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_event")),
	}
}

func (r *webhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, gateway_event_id, external_id, event_type, booking_id,
		                            payment_id, outcome, detail, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.GatewayEventID,
		event.ExternalID,
		event.EventType,
		event.BookingID,
		event.PaymentID,
		event.Outcome,
		event.Detail,
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		r.log.Error("Failed to record webhook event",
			zap.Error(err),
			zap.String("external_id", event.ExternalID),
			zap.String("event_type", event.EventType),
		)
		return fmt.Errorf("record webhook event %s: %w", event.ExternalID, err)
	}

	return nil
}

func (r *webhookEventRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.WebhookEvent, error) {
	query := `
		SELECT id, gateway_event_id, external_id, event_type, booking_id,
		       payment_id, outcome, detail, payload, received_at
		FROM webhook_events
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list webhook events", zap.Error(err))
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []*entity.WebhookEvent
	for rows.Next() {
		var event entity.WebhookEvent
		if err := rows.Scan(
			&event.ID,
			&event.GatewayEventID,
			&event.ExternalID,
			&event.EventType,
			&event.BookingID,
			&event.PaymentID,
			&event.Outcome,
			&event.Detail,
			&event.Payload,
			&event.ReceivedAt,
		); err != nil {
			r.log.Error("Failed to scan webhook event row", zap.Error(err))
			return nil, fmt.Errorf("scan webhook event row: %w", err)
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

func (r *webhookEventRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_events`).Scan(&count); err != nil {
		r.log.Error("Failed to count webhook events", zap.Error(err))
		return 0, fmt.Errorf("count webhook events: %w", err)
	}
	return count, nil
}
