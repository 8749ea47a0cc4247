package entity

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalIDRoundTrip(t *testing.T) {
	codec := NewExternalIDCodec("")
	bookingID := uuid.New()
	paymentID := uuid.New()

	ext := codec.Format(bookingID, paymentID)
	assert.True(t, strings.HasPrefix(ext, "BOOKING-"))

	gotBooking, gotPayment, err := codec.Parse(ext)
	require.NoError(t, err)
	assert.Equal(t, bookingID, gotBooking)
	assert.Equal(t, paymentID, gotPayment)
}

func TestExternalIDCustomPrefixWithDash(t *testing.T) {
	codec := NewExternalIDCodec("MKT-ID")
	bookingID := uuid.New()
	paymentID := uuid.New()

	gotBooking, gotPayment, err := codec.Parse(codec.Format(bookingID, paymentID))
	require.NoError(t, err)
	assert.Equal(t, bookingID, gotBooking)
	assert.Equal(t, paymentID, gotPayment)
}

func TestExternalIDRejectsMalformed(t *testing.T) {
	codec := NewExternalIDCodec("BOOKING")
	id := uuid.New().String()

	cases := map[string]string{
		"empty":          "",
		"wrong prefix":   "ORDER-" + id + "-" + id,
		"missing part":   "BOOKING-" + id,
		"trailing data":  "BOOKING-" + id + "-" + id + "-x",
		"not uuid":       "BOOKING-abc-def",
		"prefix is meta": "BOOKINGX" + id + "-" + id,
	}

	for name, ext := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := codec.Parse(ext)
			assert.Error(t, err)
		})
	}
}
