package response

import (
	"encoding/json"
	"time"

	"service-marketplace/internal/data/entity"

	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	ID            string           `json:"id"`
	BookingID     string           `json:"booking_id"`
	Amount        decimal.Decimal  `json:"amount"`
	Status        string           `json:"status"`
	PaymentMethod *string          `json:"payment_method,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	RefundAmount  *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundReason  *string          `json:"refund_reason,omitempty"`
	RefundedAt    *time.Time       `json:"refunded_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID.String(),
		BookingID:     payment.BookingID.String(),
		Amount:        payment.Amount,
		Status:        string(payment.Status),
		PaymentMethod: payment.PaymentMethod,
		TransactionID: payment.TransactionID,
		PaidAt:        payment.PaidAt,
		RefundAmount:  payment.RefundAmount,
		RefundReason:  payment.RefundReason,
		RefundedAt:    payment.RefundedAt,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

// AdminPaymentResponse shows a payment together with its booking.
type AdminPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Booking BookingResponse `json:"booking"`
}

// WebhookResponse is the body acknowledged back to the gateway.
type WebhookResponse struct {
	Message       string `json:"message"`
	ExternalID    string `json:"external_id"`
	Event         string `json:"event"`
	PaymentStatus string `json:"payment_status,omitempty"`
	BookingStatus string `json:"booking_status,omitempty"`
}

type WebhookEventResponse struct {
	ID             string          `json:"id"`
	GatewayEventID *string         `json:"gateway_event_id,omitempty"`
	ExternalID     string          `json:"external_id"`
	EventType      string          `json:"event_type"`
	BookingID      string          `json:"booking_id"`
	PaymentID      *string         `json:"payment_id,omitempty"`
	Outcome        string          `json:"outcome"`
	Detail         *string         `json:"detail,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	ReceivedAt     time.Time       `json:"received_at"`
}

func WebhookEventToResponse(event *entity.WebhookEvent) WebhookEventResponse {
	resp := WebhookEventResponse{
		ID:             event.ID.String(),
		GatewayEventID: event.GatewayEventID,
		ExternalID:     event.ExternalID,
		EventType:      event.EventType,
		BookingID:      event.BookingID.String(),
		Outcome:        string(event.Outcome),
		Detail:         event.Detail,
		Payload:        event.Payload,
		ReceivedAt:     event.ReceivedAt,
	}
	if event.PaymentID != nil {
		id := event.PaymentID.String()
		resp.PaymentID = &id
	}
	return resp
}
