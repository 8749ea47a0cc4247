package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/internal/dto/request"
	"service-marketplace/internal/dto/response"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/gateway"
	"service-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type BookingService interface {
	// CreateBookingWithInvoice reserves the slot, records a PENDING
	// payment and opens a hosted invoice. When the gateway fails, both
	// rows are removed again before the error is returned.
	CreateBookingWithInvoice(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingInvoiceResponse, error)
	GetBooking(ctx context.Context, principal utils.Principal, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
}

type bookingService struct {
	repo    *repository.Repository
	gateway gateway.Client
	codec   *entity.ExternalIDCodec
	now     func() time.Time
	log     *zap.Logger
}

func NewBookingService(repo *repository.Repository, gw gateway.Client, codec *entity.ExternalIDCodec, now func() time.Time, log *zap.Logger) BookingService {
	return &bookingService{
		repo:    repo,
		gateway: gw,
		codec:   codec,
		now:     now,
		log:     log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBookingWithInvoice(ctx context.Context, customerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingInvoiceResponse, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "booking.CreateBookingWithInvoice")
	defer span.End()

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation("Validation failed: " + utils.FormatValidationErrors(errs))
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return nil, apperror.Validation("Invalid service ID format")
	}

	service, err := s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if service == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeServiceNotFound, "Service not found")
	}
	if !service.IsActive {
		return nil, apperror.New(apperror.KindConflict, apperror.CodeServiceInactive, "Service is not available for booking")
	}
	if service.ProviderID == customerID {
		return nil, apperror.Validation("You cannot book your own service")
	}

	now := s.now()
	if !req.ScheduledAt.After(now) {
		return nil, apperror.Validation("scheduled_at must be in the future")
	}

	customer, err := s.repo.User.FindByID(ctx, customerID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if customer == nil {
		return nil, apperror.New(apperror.KindNotFound, apperror.CodeCustomerNotFound, "Customer not found")
	}

	// everything the invoice needs is checked before the first write
	if customer.Email == nil || strings.TrimSpace(*customer.Email) == "" {
		return nil, apperror.InvalidInvoiceRequest("Customer email is required to create an invoice")
	}
	if !service.Price.IsPositive() {
		return nil, apperror.InvalidInvoiceRequest("Invoice amount must be greater than zero")
	}

	taken, err := s.repo.Booking.HasActiveSlot(ctx, serviceID, req.ScheduledAt)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if taken {
		return nil, apperror.SlotConflict(fmt.Errorf("service %s already booked at %s", serviceID, req.ScheduledAt.Format(time.RFC3339)))
	}

	booking := &entity.Booking{
		Base:        entity.NewBase(now),
		ServiceID:   service.ID,
		CustomerID:  customerID,
		ProviderID:  service.ProviderID,
		Status:      entity.BookingStatusPending,
		ScheduledAt: req.ScheduledAt,
		TotalAmount: service.Price,
		Notes:       req.Notes,
	}
	payment := &entity.Payment{
		Base:      entity.NewBase(now),
		BookingID: booking.ID,
		Amount:    service.Price,
		Status:    entity.PaymentStatusPending,
	}

	err = s.repo.Tx.WithTx(ctx, func(repo *repository.Repository) error {
		if err := repo.Booking.Create(ctx, booking); err != nil {
			return err
		}
		existing, err := repo.Payment.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.DuplicatePayment(booking.ID.String(), nil)
		}
		return repo.Payment.Create(ctx, payment)
	})
	if err != nil {
		s.log.Warn("Failed to record booking",
			zap.Error(err),
			zap.String("customer_id", customerID.String()),
			zap.String("service_id", serviceID.String()),
		)
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Internal(err)
	}

	span.SetAttributes(
		attribute.String("booking.id", booking.ID.String()),
		attribute.String("payment.id", payment.ID.String()),
	)

	invoice, err := s.gateway.CreateInvoice(ctx, gateway.InvoiceRequest{
		ExternalID:  s.codec.Format(booking.ID, payment.ID),
		Amount:      payment.Amount,
		PayerEmail:  *customer.Email,
		Description: fmt.Sprintf("Booking for %s on %s", service.Title, booking.ScheduledAt.Format(time.RFC3339)),
	})
	if err != nil {
		invoiceResults.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice creation failed")
		s.rollback(ctx, booking, payment, err)

		category := gateway.CategoryOf(err)
		return nil, apperror.Gateway(string(category), category.UserMessage(), err)
	}
	invoiceResults.WithLabelValues("created").Inc()

	if err := s.repo.Payment.SetTransactionID(ctx, payment.ID, invoice.ID); err != nil {
		// the first webhook adopts the id through the PENDING fallback
		s.log.Warn("Failed to store invoice id on payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("transaction_id", invoice.ID),
		)
	} else {
		payment.TransactionID = &invoice.ID
	}

	s.log.Info("Booking created with invoice",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("transaction_id", invoice.ID),
		zap.String("amount", payment.Amount.String()),
	)

	return &response.BookingInvoiceResponse{
		Booking:    response.BookingToResponse(booking, nil),
		Payment:    response.PaymentToResponse(payment),
		InvoiceURL: invoice.InvoiceURL,
	}, nil
}

// rollback removes the payment and the booking in one transaction under
// the booking lock. It runs detached from the request so a disconnecting
// client cannot leave half of it behind.
func (s *bookingService) rollback(ctx context.Context, booking *entity.Booking, payment *entity.Payment, cause error) {
	ctx = context.WithoutCancel(ctx)

	err := s.repo.Tx.WithBookingLock(ctx, booking.ID, func(repo *repository.Repository) error {
		if err := repo.Payment.Delete(ctx, payment.ID); err != nil {
			return err
		}
		return repo.Booking.Delete(ctx, booking.ID)
	})
	if err != nil {
		s.log.Error("Compensating rollback failed, left for the stale payment sweeper",
			zap.Error(err),
			zap.NamedError("gateway_error", cause),
			zap.String("booking_id", booking.ID.String()),
			zap.String("payment_id", payment.ID.String()),
		)
		return
	}

	s.log.Warn("Invoice creation failed, booking rolled back",
		zap.Error(cause),
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_id", payment.ID.String()),
	)
}

func (s *bookingService) GetBooking(ctx context.Context, principal utils.Principal, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, apperror.Validation("Invalid booking ID format")
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if booking == nil {
		return nil, apperror.BookingNotFound(bookingID)
	}
	if principal.Role != string(entity.RoleAdmin) && !booking.IsParticipant(principal.UserID) {
		return nil, apperror.Forbidden("You are not allowed to view this booking")
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	resp := response.BookingToResponse(booking, payment)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("page", req.Page),
			zap.Int("per_page", limit),
		)
		return nil, apperror.Internal(err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	items := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		payment, err := s.repo.Payment.FindByBookingID(ctx, booking.ID)
		if err != nil {
			s.log.Warn("Failed to load payment for booking", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		}
		items[i] = response.BookingToResponse(booking, payment)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(items, page, limit, total), nil
}
