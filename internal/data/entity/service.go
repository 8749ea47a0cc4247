package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the read model of a catalog listing.
type Service struct {
	Base
	ProviderID uuid.UUID       `db:"provider_id"`
	Title      string          `db:"title"`
	Price      decimal.Decimal `db:"price"`
	IsActive   bool            `db:"is_active"`
}
