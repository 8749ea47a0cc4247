package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	Base
	BookingID     uuid.UUID       `db:"booking_id"`
	Amount        decimal.Decimal `db:"amount"`
	Status        PaymentStatus   `db:"status"`
	PaymentMethod *string         `db:"payment_method"`
	TransactionID *string         `db:"transaction_id"`
	PaidAt        *time.Time      `db:"paid_at"`

	RefundAmount *decimal.Decimal `db:"refund_amount"`
	RefundReason *string          `db:"refund_reason"`
	RefundedAt   *time.Time       `db:"refunded_at"`
}

// HasTransaction reports whether the gateway invoice id is recorded.
func (p *Payment) HasTransaction(id string) bool {
	return p.TransactionID != nil && *p.TransactionID == id
}
