package usecase

import (
	"context"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/internal/dto/request"
	"service-marketplace/internal/dto/response"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransitionService interface {
	TransitionBooking(ctx context.Context, bookingID uuid.UUID, target entity.BookingStatus, cause entity.Cause) (*entity.Booking, error)
	TransitionPayment(ctx context.Context, paymentID uuid.UUID, target entity.PaymentStatus, cause entity.Cause) (*entity.Payment, error)

	// UpdateBookingStatus is the participant-facing transition endpoint.
	UpdateBookingStatus(ctx context.Context, principal utils.Principal, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)

	// CancelStalePayments cancels PENDING payments that never got an
	// invoice id, returning how many were cancelled.
	CancelStalePayments(ctx context.Context, createdBefore time.Time, limit int) (int, error)
}

type transitionService struct {
	repo     *repository.Repository
	sm       *stateMachine
	notifier *notifier
	log      *zap.Logger
}

func NewTransitionService(repo *repository.Repository, sm *stateMachine, notifier *notifier, log *zap.Logger) TransitionService {
	return &transitionService{
		repo:     repo,
		sm:       sm,
		notifier: notifier,
		log:      log.With(zap.String("service", "transition")),
	}
}

func (s *transitionService) TransitionBooking(ctx context.Context, bookingID uuid.UUID, target entity.BookingStatus, cause entity.Cause) (*entity.Booking, error) {
	if !target.Valid() {
		return nil, apperror.Validation("Unknown booking status " + string(target))
	}

	var (
		booking *entity.Booking
		changes changeSet
	)
	err := s.repo.Tx.WithBookingLock(ctx, bookingID, func(repo *repository.Repository) error {
		b, err := repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperror.BookingNotFound(bookingID.String())
		}
		p, err := repo.Payment.FindByBookingID(ctx, bookingID)
		if err != nil {
			return err
		}

		if _, err := s.sm.moveBooking(ctx, repo, b, p, target, cause, &changes); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		s.logFailure("Booking transition failed", err,
			zap.String("booking_id", bookingID.String()),
			zap.String("target", string(target)),
			zap.String("cause", string(cause)),
		)
		return nil, err
	}

	s.notifier.publish(ctx, changes)
	return booking, nil
}

func (s *transitionService) TransitionPayment(ctx context.Context, paymentID uuid.UUID, target entity.PaymentStatus, cause entity.Cause) (*entity.Payment, error) {
	if !target.Valid() {
		return nil, apperror.Validation("Unknown payment status " + string(target))
	}

	var (
		payment *entity.Payment
		changes changeSet
	)
	err := withPaymentLock(ctx, s.repo, paymentID, func(repo *repository.Repository, b *entity.Booking, p *entity.Payment) error {
		if _, err := s.sm.movePayment(ctx, repo, b, p, target, cause, &changes); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		s.logFailure("Payment transition failed", err,
			zap.String("payment_id", paymentID.String()),
			zap.String("target", string(target)),
			zap.String("cause", string(cause)),
		)
		return nil, err
	}

	s.notifier.publish(ctx, changes)
	return payment, nil
}

// allowedTargets lists the statuses each non-admin role may request on
// a booking it takes part in.
var allowedTargets = map[entity.UserRole][]entity.BookingStatus{
	entity.RoleCustomer: {entity.BookingStatusCancelled},
	entity.RoleProvider: {entity.BookingStatusInProgress, entity.BookingStatusCompleted, entity.BookingStatusCancelled},
}

func (s *transitionService) UpdateBookingStatus(ctx context.Context, principal utils.Principal, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update booking status validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation("Validation failed: " + utils.FormatValidationErrors(errs))
	}

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

	target := entity.BookingStatus(req.Status)
	cause, err := causeFor(principal, booking, target)
	if err != nil {
		s.log.Warn("Booking status change refused",
			zap.String("booking_id", bookingID),
			zap.String("user_id", principal.UserID.String()),
			zap.String("role", principal.Role),
			zap.String("target", req.Status),
		)
		return nil, err
	}

	updated, err := s.TransitionBooking(ctx, id, target, cause)
	if err != nil {
		return nil, err
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, id)
	if err != nil {
		s.log.Warn("Failed to load payment for booking response", zap.Error(err), zap.String("booking_id", bookingID))
	}

	resp := response.BookingToResponse(updated, payment)
	return &resp, nil
}

func causeFor(principal utils.Principal, booking *entity.Booking, target entity.BookingStatus) (entity.Cause, error) {
	role := entity.UserRole(principal.Role)
	if role == entity.RoleAdmin {
		return entity.CauseAdminOverride, nil
	}

	var cause entity.Cause
	switch {
	case role == entity.RoleCustomer && booking.CustomerID == principal.UserID:
		cause = entity.CauseCustomer
	case role == entity.RoleProvider && booking.ProviderID == principal.UserID:
		cause = entity.CauseProvider
	default:
		return "", apperror.Forbidden("You are not allowed to change this booking")
	}

	for _, allowed := range allowedTargets[role] {
		if allowed == target {
			return cause, nil
		}
	}
	return "", apperror.Forbidden("Your role cannot set booking status " + string(target))
}

func (s *transitionService) CancelStalePayments(ctx context.Context, createdBefore time.Time, limit int) (int, error) {
	stale, err := s.repo.Payment.FindStalePending(ctx, createdBefore, limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, candidate := range stale {
		var changes changeSet
		err := s.repo.Tx.WithBookingLock(ctx, candidate.BookingID, func(repo *repository.Repository) error {
			// re-read under the lock, a webhook may have adopted it meanwhile
			p, err := repo.Payment.FindByID(ctx, candidate.ID)
			if err != nil || p == nil {
				return err
			}
			if p.Status != entity.PaymentStatusPending || p.TransactionID != nil {
				return nil
			}
			b, err := repo.Booking.FindByID(ctx, p.BookingID)
			if err != nil {
				return err
			}
			if b == nil {
				return apperror.BookingNotFound(p.BookingID.String())
			}
			_, err = s.sm.movePayment(ctx, repo, b, p, entity.PaymentStatusCancelled, entity.CauseSystem, &changes)
			return err
		})
		if err != nil {
			s.log.Error("Failed to cancel stale payment",
				zap.Error(err),
				zap.String("payment_id", candidate.ID.String()),
				zap.String("booking_id", candidate.BookingID.String()),
			)
			continue
		}
		if len(changes) > 0 {
			cancelled++
			s.notifier.publish(ctx, changes)
		}
	}

	if cancelled > 0 {
		s.log.Info("Stale pending payments cancelled", zap.Int("count", cancelled))
	}
	return cancelled, nil
}

func (s *transitionService) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if appErr, ok := apperror.As(err); ok && appErr.Kind != apperror.KindInternal {
		s.log.Warn(msg, fields...)
		return
	}
	s.log.Error(msg, fields...)
}

// withPaymentLock resolves the payment's booking, locks it and re-reads
// both rows inside the transaction before calling fn.
func withPaymentLock(ctx context.Context, repo *repository.Repository, paymentID uuid.UUID,
	fn func(repo *repository.Repository, b *entity.Booking, p *entity.Payment) error) error {
	current, err := repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return apperror.Internal(err)
	}
	if current == nil {
		return apperror.PaymentNotFound(paymentID.String())
	}

	return repo.Tx.WithBookingLock(ctx, current.BookingID, func(txRepo *repository.Repository) error {
		p, err := txRepo.Payment.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperror.PaymentNotFound(paymentID.String())
		}
		b, err := txRepo.Booking.FindByID(ctx, p.BookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return apperror.BookingNotFound(p.BookingID.String())
		}
		return fn(txRepo, b, p)
	})
}
