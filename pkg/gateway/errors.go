package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Category buckets gateway failures into what the customer is told.
type Category string

const (
	CategoryTemporarilyUnavailable Category = "temporarily_unavailable"
	CategoryConfiguration          Category = "configuration_error"
	CategoryInvalidRequest         Category = "invalid_request"
	CategoryConflict               Category = "conflict"
	CategoryGeneric                Category = "generic_failure"
)

var userMessages = map[Category]string{
	CategoryTemporarilyUnavailable: "Payment system is temporarily unavailable. Please try again later.",
	CategoryConfiguration:          "Payment system configuration error. Please contact support.",
	CategoryInvalidRequest:         "Invalid payment request. Please check your booking details.",
	CategoryConflict:               "A payment for this booking is already being processed.",
	CategoryGeneric:                "Failed to create payment invoice. Please try again.",
}

func (c Category) UserMessage() string {
	if msg, ok := userMessages[c]; ok {
		return msg
	}
	return userMessages[CategoryGeneric]
}

// Error is returned for every failed invoice call. StatusCode is zero
// when no HTTP response was received. Body is for logs only.
type Error struct {
	Category   Category
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: status %d", e.Category, e.StatusCode)
	}
	return fmt.Sprintf("gateway %s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryForStatus maps a non-2xx gateway status code.
func CategoryForStatus(code int) Category {
	switch {
	case code >= 500:
		return CategoryTemporarilyUnavailable
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return CategoryConfiguration
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return CategoryInvalidRequest
	case code == http.StatusConflict:
		return CategoryConflict
	default:
		return CategoryGeneric
	}
}

// CategoryOf returns the category of err, generic when err is not a
// gateway error.
func CategoryOf(err error) Category {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Category
	}
	return CategoryGeneric
}
