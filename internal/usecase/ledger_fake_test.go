package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"service-marketplace/internal/data/entity"
	"service-marketplace/internal/data/repository"
	"service-marketplace/pkg/apperror"
	"service-marketplace/pkg/events"
	"service-marketplace/pkg/gateway"

	"github.com/google/uuid"
)

// memLedger is an in-memory stand-in for the Postgres ledger. It keeps
// values, not pointers, so callers only see their writes after a store
// call, and restores a snapshot when a transaction fails.
type memLedger struct {
	mu   sync.Mutex
	txMu sync.Mutex

	services map[uuid.UUID]entity.Service
	users    map[uuid.UUID]entity.User
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	events   []entity.WebhookEvent

	// failures keyed by operation name, e.g. "payment.Update"
	fail map[string]error
}

func newMemLedger() *memLedger {
	return &memLedger{
		services: map[uuid.UUID]entity.Service{},
		users:    map[uuid.UUID]entity.User{},
		bookings: map[uuid.UUID]entity.Booking{},
		payments: map[uuid.UUID]entity.Payment{},
		fail:     map[string]error{},
	}
}

func (l *memLedger) repository() *repository.Repository {
	return &repository.Repository{
		User:         &memUsers{l},
		Service:      &memServices{l},
		Booking:      &memBookings{l},
		Payment:      &memPayments{l},
		WebhookEvent: &memWebhookEvents{l},
		Tx:           &memTransactor{l},
	}
}

func (l *memLedger) failWith(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail[op] = err
}

// check must be called with mu held.
func (l *memLedger) check(op string) error {
	return l.fail[op]
}

type snapshot struct {
	bookings map[uuid.UUID]entity.Booking
	payments map[uuid.UUID]entity.Payment
	events   []entity.WebhookEvent
}

func (l *memLedger) snapshot() snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := snapshot{
		bookings: make(map[uuid.UUID]entity.Booking, len(l.bookings)),
		payments: make(map[uuid.UUID]entity.Payment, len(l.payments)),
		events:   append([]entity.WebhookEvent(nil), l.events...),
	}
	for k, v := range l.bookings {
		s.bookings[k] = v
	}
	for k, v := range l.payments {
		s.payments[k] = v
	}
	return s
}

func (l *memLedger) restore(s snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookings, l.payments, l.events = s.bookings, s.payments, s.events
}

func (l *memLedger) booking(id uuid.UUID) entity.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bookings[id]
}

func (l *memLedger) payment(id uuid.UUID) entity.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.payments[id]
}

func (l *memLedger) webhookEvents() []entity.WebhookEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.WebhookEvent(nil), l.events...)
}

// memTransactor serializes every transaction, which is at least as strict
// as a per-booking row lock.
type memTransactor struct{ l *memLedger }

func (t *memTransactor) WithTx(ctx context.Context, fn func(repo *repository.Repository) error) error {
	t.l.txMu.Lock()
	defer t.l.txMu.Unlock()

	snap := t.l.snapshot()
	repo := t.l.repository()
	repo.Tx = &memOpenTx{repo: repo}
	if err := fn(repo); err != nil {
		t.l.restore(snap)
		return err
	}
	return nil
}

func (t *memTransactor) WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(repo *repository.Repository) error) error {
	return t.WithTx(ctx, func(repo *repository.Repository) error {
		found, err := repo.Booking.LockByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !found {
			return apperror.BookingNotFound(bookingID.String())
		}
		return fn(repo)
	})
}

type memOpenTx struct{ repo *repository.Repository }

func (o *memOpenTx) WithTx(ctx context.Context, fn func(repo *repository.Repository) error) error {
	return fn(o.repo)
}

func (o *memOpenTx) WithBookingLock(ctx context.Context, bookingID uuid.UUID, fn func(repo *repository.Repository) error) error {
	return fn(o.repo)
}

type memUsers struct{ l *memLedger }

func (r *memUsers) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	u, ok := r.l.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type memServices struct{ l *memLedger }

func (r *memServices) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	s, ok := r.l.services[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

type memBookings struct{ l *memLedger }

func (r *memBookings) Create(ctx context.Context, b *entity.Booking) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("booking.Create"); err != nil {
		return err
	}
	for _, other := range r.l.bookings {
		if other.ServiceID == b.ServiceID && other.ScheduledAt.Equal(b.ScheduledAt) && other.Status.IsActive() {
			return apperror.SlotConflict(errors.New("duplicate key value violates unique constraint"))
		}
	}
	r.l.bookings[b.ID] = *b
	return nil
}

func (r *memBookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	b, ok := r.l.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memBookings) userBookings(userID uuid.UUID) []entity.Booking {
	var out []entity.Booking
	for _, b := range r.l.bookings {
		if b.CustomerID == userID || b.ProviderID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memBookings) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	all := r.userBookings(userID)
	var page []*entity.Booking
	for i := offset; i < len(all) && len(page) < limit; i++ {
		b := all[i]
		page = append(page, &b)
	}
	return page, nil
}

func (r *memBookings) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	return int64(len(r.userBookings(userID))), nil
}

func (r *memBookings) UpdateStatus(ctx context.Context, b *entity.Booking) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("booking.UpdateStatus"); err != nil {
		return err
	}
	stored, ok := r.l.bookings[b.ID]
	if !ok {
		return apperror.BookingNotFound(b.ID.String())
	}
	stored.Status = b.Status
	stored.CompletedAt = b.CompletedAt
	stored.UpdatedAt = b.UpdatedAt
	r.l.bookings[b.ID] = stored
	return nil
}

func (r *memBookings) Delete(ctx context.Context, id uuid.UUID) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("booking.Delete"); err != nil {
		return err
	}
	delete(r.l.bookings, id)
	return nil
}

func (r *memBookings) HasActiveSlot(ctx context.Context, serviceID uuid.UUID, scheduledAt time.Time) (bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, b := range r.l.bookings {
		if b.ServiceID == serviceID && b.ScheduledAt.Equal(scheduledAt) && b.Status.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBookings) LockByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	_, ok := r.l.bookings[id]
	return ok, nil
}

type memPayments struct{ l *memLedger }

func (r *memPayments) Create(ctx context.Context, p *entity.Payment) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("payment.Create"); err != nil {
		return err
	}
	for _, other := range r.l.payments {
		if other.BookingID == p.BookingID {
			return apperror.DuplicatePayment(p.BookingID.String(), errors.New("duplicate key value violates unique constraint"))
		}
	}
	r.l.payments[p.ID] = *p
	return nil
}

func (r *memPayments) find(match func(p entity.Payment) bool) (*entity.Payment, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, p := range r.l.payments {
		if match(p) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memPayments) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.ID == id })
}

func (r *memPayments) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.BookingID == bookingID })
}

func (r *memPayments) FindByBookingAndTransaction(ctx context.Context, bookingID uuid.UUID, transactionID string) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool { return p.BookingID == bookingID && p.HasTransaction(transactionID) })
}

func (r *memPayments) FindPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return r.find(func(p entity.Payment) bool {
		return p.BookingID == bookingID && p.Status == entity.PaymentStatusPending
	})
}

func (r *memPayments) Update(ctx context.Context, p *entity.Payment) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("payment.Update"); err != nil {
		return err
	}
	stored, ok := r.l.payments[p.ID]
	if !ok {
		return apperror.PaymentNotFound(p.ID.String())
	}
	// amount and booking are immutable
	updated := *p
	updated.Amount = stored.Amount
	updated.BookingID = stored.BookingID
	r.l.payments[p.ID] = updated
	return nil
}

func (r *memPayments) Delete(ctx context.Context, id uuid.UUID) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("payment.Delete"); err != nil {
		return err
	}
	delete(r.l.payments, id)
	return nil
}

func (r *memPayments) SetTransactionID(ctx context.Context, paymentID uuid.UUID, transactionID string) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("payment.SetTransactionID"); err != nil {
		return err
	}
	p, ok := r.l.payments[paymentID]
	if !ok {
		return apperror.PaymentNotFound(paymentID.String())
	}
	p.TransactionID = &transactionID
	r.l.payments[paymentID] = p
	return nil
}

func (r *memPayments) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*entity.Payment, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var out []*entity.Payment
	for _, p := range r.l.payments {
		if len(out) == limit {
			break
		}
		if p.Status == entity.PaymentStatusPending && p.TransactionID == nil && p.CreatedAt.Before(createdBefore) {
			stale := p
			out = append(out, &stale)
		}
	}
	return out, nil
}

type memWebhookEvents struct{ l *memLedger }

func (r *memWebhookEvents) Create(ctx context.Context, e *entity.WebhookEvent) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.check("webhook.Create"); err != nil {
		return err
	}
	r.l.events = append(r.l.events, *e)
	return nil
}

func (r *memWebhookEvents) FindAll(ctx context.Context, limit, offset int) ([]*entity.WebhookEvent, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var out []*entity.WebhookEvent
	for i := len(r.l.events) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		e := r.l.events[i]
		out = append(out, &e)
	}
	return out, nil
}

func (r *memWebhookEvents) Count(ctx context.Context) (int64, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	return int64(len(r.l.events)), nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gateway.InvoiceRequest
	err   error
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, req gateway.InvoiceRequest) (*gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.Invoice{
		ID:         "inv_" + req.ExternalID[len(req.ExternalID)-8:],
		InvoiceURL: "https://checkout.example.com/" + req.ExternalID,
		Status:     "PENDING",
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PaymentEvent(nil), p.events...)
}
