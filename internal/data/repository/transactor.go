package repository

import (
	"context"
	"errors"
	"fmt"

	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Transactor scopes repository work to one database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(repo *Repository) error) error

	// WithBookingLock takes a row lock on the booking before running fn, so
	// every read-modify-write on a booking and its payment is serialized.
	// A missing booking yields a BOOKING_NOT_FOUND error.
	WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(repo *Repository) error) error
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgxTransactor struct {
	db  txBeginner
	log *zap.Logger
}

func NewTransactor(db txBeginner, log *zap.Logger) Transactor {
	return &pgxTransactor{db: db, log: log.With(zap.String("repository", "transactor"))}
}

func (t *pgxTransactor) WithTx(ctx context.Context, fn func(repo *Repository) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		t.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	repo := newRepositories(tx, t.log)
	repo.Tx = &openTx{repo: repo}

	if err := fn(repo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.log.Error("Failed to rollback transaction", zap.Error(rbErr), zap.NamedError("cause", err))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (t *pgxTransactor) WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(repo *Repository) error) error {
	return t.WithTx(ctx, func(repo *Repository) error {
		if err := lockBooking(ctx, repo.Booking, bookingID); err != nil {
			return err
		}
		return fn(repo)
	})
}

// openTx is the Transactor handed to code already inside a transaction.
type openTx struct {
	repo *Repository
}

func (o *openTx) WithTx(ctx context.Context, fn func(repo *Repository) error) error {
	return fn(o.repo)
}

func (o *openTx) WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(repo *Repository) error) error {
	if err := lockBooking(ctx, o.repo.Booking, bookingID); err != nil {
		return err
	}
	return fn(o.repo)
}

func lockBooking(ctx context.Context, bookings BookingRepository, bookingID uuid.UUID) error {
	found, err := bookings.LockByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if !found {
		return apperror.BookingNotFound(bookingID.String())
	}
	return nil
}

var _ database.Querier = (pgx.Tx)(nil)
