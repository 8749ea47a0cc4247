package apperror

import "fmt"

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func InvalidInvoiceRequest(message string) *Error {
	return New(KindValidation, CodeInvalidInvoiceRequest, message)
}

func BookingNotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeBookingNotFound, Message: "Booking not found",
		Err: fmt.Errorf("booking %s not found", id)}
}

func PaymentNotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Code: CodePaymentNotFound, Message: "Payment not found",
		Err: fmt.Errorf("payment %s not found", id)}
}

func DuplicatePayment(bookingID string, err error) *Error {
	if err == nil {
		err = fmt.Errorf("booking %s already has a payment", bookingID)
	}
	return Wrap(err, KindConflict, CodeDuplicatePayment, "A payment already exists for this booking")
}

func SlotConflict(err error) *Error {
	return Wrap(err, KindConflict, CodeSlotConflict, "The selected time slot is already booked")
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, CodeForbidden, message)
}

func InvalidWebhook(err error) *Error {
	return Wrap(err, KindValidation, CodeInvalidWebhook, "Invalid webhook payload")
}

func InvalidExternalID(externalID string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidExternalID, Message: "Invalid external_id format",
		Err: fmt.Errorf("cannot parse external id %q", externalID)}
}

func InvalidRefund(message string) *Error {
	return New(KindInvalidRefund, CodeInvalidRefund, message)
}

func Internal(err error) *Error {
	return Wrap(err, KindInternal, CodeInternal, "Internal server error")
}

// IllegalTransition reports a rejected status change for an entity.
func IllegalTransition(entity, from, to string) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Code:    CodeIllegalTransition,
		Message: fmt.Sprintf("Cannot change %s status from %s to %s", entity, from, to),
		Err:     fmt.Errorf("%s transition %s -> %s is not allowed", entity, from, to),
	}
}

// Gateway wraps an invoice gateway failure with its user-facing category.
func Gateway(category, message string, err error) *Error {
	return &Error{
		Kind:            KindGateway,
		Code:            CodeGateway,
		Message:         message,
		Err:             err,
		GatewayCategory: category,
	}
}
