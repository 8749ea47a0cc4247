package usecase

import (
	"context"
	"strings"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/internal/dto/request"
	"service-marketplace/internal/dto/response"
	"service-marketplace/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminPaymentService interface {
	GetPayment(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error)
	ListWebhookEvents(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.WebhookEventResponse], error)

	// Overrides, all applied under the booking lock
	ManualApprove(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error)
	ManualReject(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error)
	ManualRefund(ctx context.Context, paymentID string, req *request.RefundPaymentRequest) (*response.AdminPaymentResponse, error)
}

type adminPaymentService struct {
	repo     *repository.Repository
	sm       *stateMachine
	notifier *notifier
	log      *zap.Logger
}

func NewAdminPaymentService(repo *repository.Repository, sm *stateMachine, notifier *notifier, log *zap.Logger) AdminPaymentService {
	return &adminPaymentService{
		repo:     repo,
		sm:       sm,
		notifier: notifier,
		log:      log.With(zap.String("service", "admin_payment")),
	}
}

func parsePaymentID(id string) (uuid.UUID, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid payment ID format")
	}
	return paymentID, nil
}

func adminResponse(b *entity.Booking, p *entity.Payment) *response.AdminPaymentResponse {
	return &response.AdminPaymentResponse{
		Payment: response.PaymentToResponse(p),
		Booking: response.BookingToResponse(b, nil),
	}
}

func (s *adminPaymentService) GetPayment(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error) {
	id, err := parsePaymentID(paymentID)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if payment == nil {
		return nil, apperror.PaymentNotFound(paymentID)
	}
	booking, err := s.repo.Booking.FindByID(ctx, payment.BookingID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if booking == nil {
		return nil, apperror.BookingNotFound(payment.BookingID.String())
	}

	return adminResponse(booking, payment), nil
}

func (s *adminPaymentService) ListWebhookEvents(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.WebhookEventResponse], error) {
	limit := req.Limit()

	rows, err := s.repo.WebhookEvent.FindAll(ctx, limit, req.Offset())
	if err != nil {
		return nil, apperror.Internal(err)
	}
	total, err := s.repo.WebhookEvent.Count(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	items := make([]response.WebhookEventResponse, len(rows))
	for i, row := range rows {
		items[i] = response.WebhookEventToResponse(row)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(items, page, limit, total), nil
}

// approvalSteps is the booking path walked by a manual approval.
func approvalSteps(from entity.BookingStatus) ([]entity.BookingStatus, bool) {
	switch from {
	case entity.BookingStatusPending:
		return []entity.BookingStatus{entity.BookingStatusConfirmed, entity.BookingStatusInProgress}, true
	case entity.BookingStatusConfirmed:
		return []entity.BookingStatus{entity.BookingStatusInProgress}, true
	case entity.BookingStatusInProgress:
		return nil, true
	default:
		return nil, false
	}
}

func (s *adminPaymentService) ManualApprove(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error) {
	return s.override(ctx, paymentID, "approve", func(repo *repository.Repository, b *entity.Booking, p *entity.Payment, changes *changeSet) error {
		if err := s.sm.checkPayment(b, p, entity.PaymentStatusCompleted, entity.CauseAdminOverride); err != nil {
			return err
		}
		steps, ok := approvalSteps(b.Status)
		if !ok {
			return illegalBooking(b.Status, entity.BookingStatusInProgress)
		}

		if _, err := s.sm.movePayment(ctx, repo, b, p, entity.PaymentStatusCompleted, entity.CauseAdminOverride, changes); err != nil {
			return err
		}
		for _, next := range steps {
			if _, err := s.sm.moveBooking(ctx, repo, b, p, next, entity.CauseAdminOverride, changes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *adminPaymentService) ManualReject(ctx context.Context, paymentID string) (*response.AdminPaymentResponse, error) {
	return s.override(ctx, paymentID, "reject", func(repo *repository.Repository, b *entity.Booking, p *entity.Payment, changes *changeSet) error {
		_, err := s.sm.movePayment(ctx, repo, b, p, entity.PaymentStatusFailed, entity.CauseAdminOverride, changes)
		return err
	})
}

func (s *adminPaymentService) ManualRefund(ctx context.Context, paymentID string, req *request.RefundPaymentRequest) (*response.AdminPaymentResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.InvalidRefund("Refund reason is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.InvalidRefund("Refund amount must be greater than zero")
	}

	return s.override(ctx, paymentID, "refund", func(repo *repository.Repository, b *entity.Booking, p *entity.Payment, changes *changeSet) error {
		if p.Status != entity.PaymentStatusCompleted {
			return apperror.InvalidRefund("Only completed payments can be refunded, payment is " + string(p.Status))
		}
		if req.Amount.GreaterThan(p.Amount) {
			return apperror.InvalidRefund("Refund amount exceeds the paid amount of " + p.Amount.String())
		}

		now := s.sm.now()
		amount := req.Amount
		p.RefundAmount = &amount
		p.RefundReason = &reason
		p.RefundedAt = &now

		_, err := s.sm.movePayment(ctx, repo, b, p, entity.PaymentStatusRefunded, entity.CauseAdminOverride, changes)
		return err
	})
}

type overrideFunc func(repo *repository.Repository, b *entity.Booking, p *entity.Payment, changes *changeSet) error

func (s *adminPaymentService) override(ctx context.Context, paymentID, action string, fn overrideFunc) (*response.AdminPaymentResponse, error) {
	id, err := parsePaymentID(paymentID)
	if err != nil {
		return nil, err
	}

	var (
		booking *entity.Booking
		payment *entity.Payment
		changes changeSet
	)
	err = withPaymentLock(ctx, s.repo, id, func(repo *repository.Repository, b *entity.Booking, p *entity.Payment) error {
		if err := fn(repo, b, p, &changes); err != nil {
			return err
		}
		booking, payment = b, p
		return nil
	})
	if err != nil {
		s.log.Warn("Admin payment override rejected",
			zap.Error(err),
			zap.String("action", action),
			zap.String("payment_id", paymentID),
		)
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Internal(err)
	}

	s.notifier.publish(ctx, changes)
	s.log.Info("Admin payment override applied",
		zap.String("action", action),
		zap.String("payment_id", paymentID),
		zap.String("payment_status", string(payment.Status)),
		zap.String("booking_status", string(booking.Status)),
	)
	return adminResponse(booking, payment), nil
}
