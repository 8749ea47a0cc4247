package entity

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Cause records who or what requested a transition.
type Cause string

const (
	CausePaymentWebhook Cause = "payment_webhook"
	CauseAdminOverride  Cause = "admin_override"
	CauseProvider       Cause = "provider"
	CauseCustomer       Cause = "customer"
	CauseSystem         Cause = "system"
)

// transitions is a directed edge table over a closed status enum.
type transitions[S ~string] map[S][]S

// Allows reports whether from -> to is an edge. Staying in the same
// status is always allowed so repeated requests are no-ops.
func (t transitions[S]) Allows(from, to S) bool {
	if from == to {
		_, known := t[from]
		return known
	}
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t transitions[S]) terminal(s S) bool {
	next, known := t[s]
	return known && len(next) == 0
}

var bookingTransitions = transitions[BookingStatus]{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
}

var paymentTransitions = transitions[PaymentStatus]{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusCancelled:  {},
	PaymentStatusRefunded:   {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	return bookingTransitions.Allows(s, to)
}

func (s BookingStatus) IsTerminal() bool {
	return bookingTransitions.terminal(s)
}

// IsActive reports whether the booking still holds its time slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed || s == BookingStatusInProgress
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	return paymentTransitions.Allows(s, to)
}

func (s PaymentStatus) IsTerminal() bool {
	return paymentTransitions.terminal(s)
}

// IsOpen reports whether the payment can still settle.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// ConfirmsBooking reports whether cause may move a booking into CONFIRMED.
func (c Cause) ConfirmsBooking() bool {
	return c == CausePaymentWebhook || c == CauseAdminOverride
}
