package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Booking struct {
	Base
	ServiceID   uuid.UUID       `db:"service_id"`
	CustomerID  uuid.UUID       `db:"customer_id"`
	ProviderID  uuid.UUID       `db:"provider_id"`
	Status      BookingStatus   `db:"status"`
	ScheduledAt time.Time       `db:"scheduled_at"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Notes       *string         `db:"notes"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// IsParticipant reports whether the user is the booking's customer or provider.
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.CustomerID == userID || b.ProviderID == userID
}
