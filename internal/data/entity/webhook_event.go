package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeStale     WebhookOutcome = "stale"
)

// WebhookEvent is the audit row written for every resolved delivery.
type WebhookEvent struct {
	ID             uuid.UUID       `db:"id"`
	GatewayEventID *string         `db:"gateway_event_id"`
	ExternalID     string          `db:"external_id"`
	EventType      string          `db:"event_type"`
	BookingID      uuid.UUID       `db:"booking_id"`
	PaymentID      *uuid.UUID      `db:"payment_id"`
	Outcome        WebhookOutcome  `db:"outcome"`
	Detail         *string         `db:"detail"`
	Payload        json.RawMessage `db:"payload"`
	ReceivedAt     time.Time       `db:"received_at"`
}
