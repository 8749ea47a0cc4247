package request

import "github.com/shopspring/decimal"

type RefundPaymentRequest struct {
	Reason string          `json:"reason" validate:"required,max=500"`
	Amount decimal.Decimal `json:"amount"`
}
