package repository

import (
	"errors"

	"service-marketplace/pkg/database"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repository struct {
	User         UserRepository
	Session      SessionRepository
	Service      ServiceRepository
	Booking      BookingRepository
	Payment      PaymentRepository
	WebhookEvent WebhookEventRepository

	// Tx runs work atomically. Inside a transaction it reuses the open one.
	Tx Transactor
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepositories(db, log)
	repo.Tx = NewTransactor(db, log)
	return repo
}

// newRepositories binds every repository to q, the pool or an open tx.
func newRepositories(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:         NewUserRepository(q, log),
		Session:      NewSessionRepository(q, log),
		Service:      NewServiceRepository(q, log),
		Booking:      NewBookingRepository(q, log),
		Payment:      NewPaymentRepository(q, log),
		WebhookEvent: NewWebhookEventRepository(q, log),
	}
}

const uniqueViolation = "23505"

// isUniqueViolation reports a unique constraint failure, optionally on a
// specific constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
