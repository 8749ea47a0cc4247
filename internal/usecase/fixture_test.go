package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/dto/request"
	"service-marketplace/internal/dto/response"
	"service-marketplace/pkg/cache"
	"service-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testWebhookToken = "cb-token"

var testNow = time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ledger    *memLedger
	gateway   *fakeGateway
	publisher *recordingPublisher
	svc       *Service
	codec     *entity.ExternalIDCodec

	customer entity.User
	provider entity.User
	service  entity.Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithDedup(t, cache.NopDeduplicator{})
}

func newFixtureWithDedup(t *testing.T, dedup cache.Deduplicator) *fixture {
	t.Helper()

	ledger := newMemLedger()
	email := "customer@example.com"
	f := &fixture{
		ledger:    ledger,
		gateway:   &fakeGateway{},
		publisher: &recordingPublisher{},
		codec:     entity.NewExternalIDCodec("BOOKING"),
		customer:  entity.User{Base: entity.NewBase(testNow), Name: "Customer", Email: &email, Role: entity.RoleCustomer},
		provider:  entity.User{Base: entity.NewBase(testNow), Name: "Provider", Role: entity.RoleProvider},
	}
	f.service = entity.Service{
		Base:       entity.NewBase(testNow),
		ProviderID: f.provider.ID,
		Title:      "Deep cleaning",
		Price:      decimal.NewFromInt(250000),
		IsActive:   true,
	}
	ledger.users[f.customer.ID] = f.customer
	ledger.users[f.provider.ID] = f.provider
	ledger.services[f.service.ID] = f.service

	config := &utils.Config{Gateway: utils.GatewayConfig{
		ExternalIDPrefix: "BOOKING",
		WebhookToken:     testWebhookToken,
	}}
	f.svc = NewService(ledger.repository(), Deps{
		Gateway:   f.gateway,
		Publisher: f.publisher,
		Dedup:     dedup,
		Now:       func() time.Time { return testNow },
	}, config, zaptest.NewLogger(t))
	return f
}

func (f *fixture) bookingRequest(hoursAhead int) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ServiceID:   f.service.ID.String(),
		ScheduledAt: testNow.Add(time.Duration(hoursAhead) * time.Hour),
	}
}

// book creates a booking with its invoice and returns the stored ids.
func (f *fixture) book(t *testing.T) (uuid.UUID, uuid.UUID, *response.BookingInvoiceResponse) {
	t.Helper()
	resp, err := f.svc.Booking.CreateBookingWithInvoice(context.Background(), f.customer.ID, f.bookingRequest(48))
	require.NoError(t, err)
	return uuid.MustParse(resp.Booking.ID), uuid.MustParse(resp.Payment.ID), resp
}

func (f *fixture) webhookBody(eventID, event string, bookingID, paymentID uuid.UUID, invoiceID string, extra string) []byte {
	idField := ""
	if eventID != "" {
		idField = fmt.Sprintf(`"id": %q,`, eventID)
	}
	if extra != "" {
		extra = "," + extra
	}
	return []byte(fmt.Sprintf(`{%s "event": %q, "data": {"id": %q, "external_id": %q, "status": "PAID", "amount": 250000%s}}`,
		idField, event, invoiceID, f.codec.Format(bookingID, paymentID), extra))
}

func (f *fixture) transactionID(t *testing.T, paymentID uuid.UUID) string {
	t.Helper()
	p := f.ledger.payment(paymentID)
	require.NotNil(t, p.TransactionID)
	return *p.TransactionID
}

// book2 books a second, later slot of the same service.
func (f *fixture) book2(t *testing.T) (uuid.UUID, uuid.UUID, *response.BookingInvoiceResponse) {
	t.Helper()
	resp, err := f.svc.Booking.CreateBookingWithInvoice(context.Background(), f.customer.ID, f.bookingRequest(72))
	require.NoError(t, err)
	return uuid.MustParse(resp.Booking.ID), uuid.MustParse(resp.Payment.ID), resp
}
