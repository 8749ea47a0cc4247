package response

import (
	"time"

	"service-marketplace/internal/data/entity"

	"github.com/shopspring/decimal"
)

type BookingResponse struct {
	ID          string           `json:"id"`
	ServiceID   string           `json:"service_id"`
	CustomerID  string           `json:"customer_id"`
	ProviderID  string           `json:"provider_id"`
	Status      string           `json:"status"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	Notes       *string          `json:"notes,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Payment     *PaymentResponse `json:"payment,omitempty"`
}

// BookingInvoiceResponse is returned when a booking and its invoice are created.
type BookingInvoiceResponse struct {
	Booking    BookingResponse `json:"booking"`
	Payment    PaymentResponse `json:"payment"`
	InvoiceURL string          `json:"invoice_url"`
}

func BookingToResponse(booking *entity.Booking, payment *entity.Payment) BookingResponse {
	resp := BookingResponse{
		ID:          booking.ID.String(),
		ServiceID:   booking.ServiceID.String(),
		CustomerID:  booking.CustomerID.String(),
		ProviderID:  booking.ProviderID.String(),
		Status:      string(booking.Status),
		ScheduledAt: booking.ScheduledAt,
		TotalAmount: booking.TotalAmount,
		Notes:       booking.Notes,
		CompletedAt: booking.CompletedAt,
		CreatedAt:   booking.CreatedAt,
		UpdatedAt:   booking.UpdatedAt,
	}
	if payment != nil {
		p := PaymentToResponse(payment)
		resp.Payment = &p
	}
	return resp
}
