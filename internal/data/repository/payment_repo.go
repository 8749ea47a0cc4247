package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const paymentBookingUnique = "payments_booking_id_key"

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Business queries
	FindByBookingAndTransaction(ctx context.Context, bookingID uuid.UUID, transactionID string) (*entity.Payment, error)
	FindPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	SetTransactionID(ctx context.Context, paymentID uuid.UUID, transactionID string) error
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Payment, error)
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, amount, status, payment_method, transaction_id, paid_at,
		       refund_amount, refund_reason, refunded_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Status,
		&payment.PaymentMethod,
		&payment.TransactionID,
		&payment.PaidAt,
		&payment.RefundAmount,
		&payment.RefundReason,
		&payment.RefundedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, status, payment_method, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.Status,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if isUniqueViolation(err, paymentBookingUnique) {
		return apperror.DuplicatePayment(payment.BookingID.String(), err)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID, err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, what string, query string, args ...any) (*entity.Payment, error) {
	payment, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment "+what, zap.Error(err), zap.Any("args", args))
		return nil, fmt.Errorf("find payment %s: %w", what, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "by ID",
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "by booking ID",
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

func (r *paymentRepository) FindByBookingAndTransaction(ctx context.Context, bookingID uuid.UUID, transactionID string) (*entity.Payment, error) {
	return r.findOne(ctx, "by booking and transaction",
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND transaction_id = $2`,
		bookingID, transactionID)
}

func (r *paymentRepository) FindPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "pending by booking ID",
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 AND status = 'PENDING'`,
		bookingID)
}

// Update writes the mutable columns. Amount and booking never change.
func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, payment_method = $3, transaction_id = $4, paid_at = $5,
		    refund_amount = $6, refund_reason = $7, refunded_at = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.Status,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.PaidAt,
		payment.RefundAmount,
		payment.RefundReason,
		payment.RefundedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return fmt.Errorf("update payment %s: %w", payment.ID, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.PaymentNotFound(payment.ID.String())
	}

	return nil
}

// Delete is only used by the compensating rollback of a failed invoice.
func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		r.log.Error("Failed to delete payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return nil
}

func (r *paymentRepository) SetTransactionID(ctx context.Context, paymentID uuid.UUID, transactionID string) error {
	query := `UPDATE payments SET transaction_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, paymentID, transactionID)
	if err != nil {
		r.log.Error("Failed to set payment transaction ID",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
			zap.String("transaction_id", transactionID),
		)
		return fmt.Errorf("set transaction id on payment %s: %w", paymentID, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.PaymentNotFound(paymentID.String())
	}

	return nil
}

// FindStalePending returns PENDING payments that never received an
// invoice id and were created before the cutoff.
func (r *paymentRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'PENDING' AND transaction_id IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		r.log.Error("Failed to find stale pending payments", zap.Error(err))
		return nil, fmt.Errorf("find stale pending payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}
