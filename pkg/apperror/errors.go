package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindGateway
	KindIllegalTransition
	KindInvalidRefund
)

type Code string

const (
	CodeInternal              Code = "INTERNAL_ERROR"
	CodeValidation            Code = "VALIDATION_FAILED"
	CodeInvalidInvoiceRequest Code = "INVALID_INVOICE_REQUEST"
	CodeDuplicatePayment      Code = "DUPLICATE_PAYMENT"
	CodeSlotConflict          Code = "SLOT_CONFLICT"
	CodeServiceInactive       Code = "SERVICE_INACTIVE"
	CodeServiceNotFound       Code = "SERVICE_NOT_FOUND"
	CodeCustomerNotFound      Code = "CUSTOMER_NOT_FOUND"
	CodeInvalidWebhook        Code = "INVALID_WEBHOOK"
	CodeInvalidExternalID     Code = "INVALID_EXTERNAL_ID"
	CodePaymentNotFound       Code = "PAYMENT_NOT_FOUND"
	CodeBookingNotFound       Code = "BOOKING_NOT_FOUND"
	CodeIllegalTransition     Code = "ILLEGAL_TRANSITION"
	CodeInvalidRefund         Code = "INVALID_REFUND"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeForbidden             Code = "FORBIDDEN"
	CodeGateway               Code = "GATEWAY_ERROR"
)

// Error is the application error carried from usecases to handlers.
// Message is safe to show to clients, Err holds the internal cause.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error

	// set only for KindGateway
	GatewayCategory string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindIllegalTransition, KindInvalidRefund:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindGateway:
		if e.GatewayCategory == "temporarily_unavailable" {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// As returns the *Error inside err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Sentinels for errors.Is comparisons
var (
	ErrBookingNotFound   = New(KindNotFound, CodeBookingNotFound, "Booking not found")
	ErrPaymentNotFound   = New(KindNotFound, CodePaymentNotFound, "Payment not found")
	ErrDuplicatePayment  = New(KindConflict, CodeDuplicatePayment, "A payment already exists for this booking")
	ErrSlotConflict      = New(KindConflict, CodeSlotConflict, "The selected time slot is already booked")
	ErrIllegalTransition = New(KindIllegalTransition, CodeIllegalTransition, "Illegal status transition")
)
