package usecase

import (
	"context"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/pkg/apperror"

	"go.uber.org/zap"
)

// stateMachine applies validated transitions to a booking and its
// payment inside an open, booking-locked transaction. Every plan is
// checked in full before the first write, so a rejected cascade never
// leaves half an update behind.
type stateMachine struct {
	now func() time.Time
	log *zap.Logger
}

// change is one committed payment transition, published after commit.
type change struct {
	booking *entity.Booking
	payment *entity.Payment
	cause   entity.Cause
}

type changeSet []change

func (c *changeSet) add(b *entity.Booking, p *entity.Payment, cause entity.Cause) {
	*c = append(*c, change{booking: b, payment: p, cause: cause})
}

func illegalBooking(from, to entity.BookingStatus) error {
	return apperror.IllegalTransition("booking", string(from), string(to))
}

func illegalPayment(from, to entity.PaymentStatus) error {
	return apperror.IllegalTransition("payment", string(from), string(to))
}

func (m *stateMachine) checkBooking(b *entity.Booking, target entity.BookingStatus, cause entity.Cause) error {
	if !b.Status.CanTransitionTo(target) {
		return illegalBooking(b.Status, target)
	}
	if target == entity.BookingStatusConfirmed && b.Status != target && !cause.ConfirmsBooking() {
		return illegalBooking(b.Status, target)
	}
	return nil
}

// paymentCascade returns the booking status a payment transition drags
// along, or "" when the booking stays as it is.
func paymentCascade(b *entity.Booking, target entity.PaymentStatus, cause entity.Cause) entity.BookingStatus {
	switch target {
	case entity.PaymentStatusFailed, entity.PaymentStatusCancelled:
		if b.Status != entity.BookingStatusCancelled {
			return entity.BookingStatusCancelled
		}
	case entity.PaymentStatusCompleted:
		if cause == entity.CausePaymentWebhook && b.Status != entity.BookingStatusConfirmed &&
			b.Status != entity.BookingStatusInProgress && b.Status != entity.BookingStatusCompleted {
			return entity.BookingStatusConfirmed
		}
	}
	return ""
}

func (m *stateMachine) checkPayment(b *entity.Booking, p *entity.Payment, target entity.PaymentStatus, cause entity.Cause) error {
	if !p.Status.CanTransitionTo(target) {
		return illegalPayment(p.Status, target)
	}
	if p.Status == target {
		return nil
	}
	if next := paymentCascade(b, target, cause); next != "" {
		return m.checkBooking(b, next, cause)
	}
	return nil
}

func (m *stateMachine) writeBooking(ctx context.Context, repo *repository.Repository, b *entity.Booking, target entity.BookingStatus) error {
	now := m.now()
	from := b.Status
	b.Status = target
	b.UpdatedAt = now
	if target == entity.BookingStatusCompleted && b.CompletedAt == nil {
		b.CompletedAt = &now
	}
	if err := repo.Booking.UpdateStatus(ctx, b); err != nil {
		return err
	}
	recordTransition("booking", string(from), string(target))
	return nil
}

func (m *stateMachine) writePayment(ctx context.Context, repo *repository.Repository, p *entity.Payment, target entity.PaymentStatus) error {
	now := m.now()
	from := p.Status
	p.Status = target
	p.UpdatedAt = now
	if target == entity.PaymentStatusCompleted && p.PaidAt == nil {
		p.PaidAt = &now
	}
	if err := repo.Payment.Update(ctx, p); err != nil {
		return err
	}
	recordTransition("payment", string(from), string(target))
	return nil
}

// moveBooking transitions the booking and cancels an open payment along
// with it. p may be nil. It reports whether anything changed.
func (m *stateMachine) moveBooking(ctx context.Context, repo *repository.Repository, b *entity.Booking, p *entity.Payment,
	target entity.BookingStatus, cause entity.Cause, changes *changeSet) (bool, error) {
	if err := m.checkBooking(b, target, cause); err != nil {
		return false, err
	}
	// a webhook confirms only through a completed payment
	if target == entity.BookingStatusConfirmed && b.Status != target && cause == entity.CausePaymentWebhook &&
		(p == nil || p.Status != entity.PaymentStatusCompleted) {
		return false, illegalBooking(b.Status, target)
	}
	if b.Status == target {
		return false, nil
	}

	if err := m.writeBooking(ctx, repo, b, target); err != nil {
		return false, err
	}

	if target == entity.BookingStatusCancelled && p != nil && p.Status.IsOpen() {
		if err := m.writePayment(ctx, repo, p, entity.PaymentStatusCancelled); err != nil {
			return false, err
		}
		changes.add(b, p, cause)
	}

	m.log.Info("Booking status changed",
		zap.String("booking_id", b.ID.String()),
		zap.String("status", string(b.Status)),
		zap.String("cause", string(cause)),
	)
	return true, nil
}

// movePayment transitions the payment and couples the booking: failed or
// cancelled payments cancel it, a webhook-paid payment confirms it.
func (m *stateMachine) movePayment(ctx context.Context, repo *repository.Repository, b *entity.Booking, p *entity.Payment,
	target entity.PaymentStatus, cause entity.Cause, changes *changeSet) (bool, error) {
	if err := m.checkPayment(b, p, target, cause); err != nil {
		return false, err
	}
	if p.Status == target {
		return false, nil
	}

	next := paymentCascade(b, target, cause)
	if err := m.writePayment(ctx, repo, p, target); err != nil {
		return false, err
	}
	if next != "" {
		if err := m.writeBooking(ctx, repo, b, next); err != nil {
			return false, err
		}
	}
	changes.add(b, p, cause)

	m.log.Info("Payment status changed",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", b.ID.String()),
		zap.String("payment_status", string(p.Status)),
		zap.String("booking_status", string(b.Status)),
		zap.String("cause", string(cause)),
	)
	return true, nil
}
