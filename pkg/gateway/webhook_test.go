package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventKind(t *testing.T) {
	assert.Equal(t, EventPaid, ParseEventKind("invoice.paid"))
	assert.Equal(t, EventPaid, ParseEventKind("invoice.completed"))
	assert.Equal(t, EventExpired, ParseEventKind("invoice.expired"))
	assert.Equal(t, EventFailed, ParseEventKind("invoice.failed"))
	assert.Equal(t, EventPending, ParseEventKind("invoice.pending"))
	assert.Equal(t, EventProcessing, ParseEventKind("invoice.processing"))
	assert.Equal(t, EventOther, ParseEventKind("invoice.reminder"))
	assert.Equal(t, EventOther, ParseEventKind(""))
}

func TestDecodeWebhookObjectMethod(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"event": "invoice.paid",
		"data": {
			"id": "inv_1",
			"external_id": "BOOKING-x-y",
			"status": "PAID",
			"amount": 150000,
			"payment_method": {"type": "EWALLET", "ewallet_type": "OVO"},
			"unknown_field": true
		}
	}`)

	event, err := DecodeWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaid, event.Kind())
	assert.Equal(t, "evt_1", event.DedupKey())
	assert.Equal(t, "150000", event.Data.Amount.String())

	method := event.Data.Method()
	require.NotNil(t, method)
	assert.Equal(t, "EWALLET", method.Type)
	assert.Equal(t, "OVO", method.Code)
}

func TestDecodeWebhookFlatMethod(t *testing.T) {
	body := []byte(`{"event":"invoice.paid","data":{"id":"inv_1","external_id":"BOOKING-x-y",
		"payment_method":"BANK_TRANSFER","bank_code":"BCA","payment_channel":"BCA"}}`)

	event, err := DecodeWebhook(body)
	require.NoError(t, err)
	assert.Equal(t, "BOOKING-x-y:invoice.paid", event.DedupKey())

	method := event.Data.Method()
	require.NotNil(t, method)
	assert.Equal(t, "BANK_TRANSFER", method.Type)
	assert.Equal(t, "BCA", method.Code)
}

func TestDecodeWebhookNoMethod(t *testing.T) {
	event, err := DecodeWebhook([]byte(`{"event":"invoice.expired","data":{"external_id":"BOOKING-x-y"}}`))
	require.NoError(t, err)
	assert.Nil(t, event.Data.Method())
}

func TestDecodeWebhookCreatedFormats(t *testing.T) {
	for _, created := range []string{`1700000000`, `"2026-01-10T10:00:00Z"`, `null`} {
		body := []byte(`{"event": "invoice.paid", "created": ` + created + `, "data": {"external_id": "BOOKING-x-y"}}`)

		event, err := DecodeWebhook(body)
		require.NoError(t, err, created)
		assert.Equal(t, EventPaid, event.Kind())
	}
}

func TestDecodeWebhookRejectsGarbage(t *testing.T) {
	_, err := DecodeWebhook([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeWebhook([]byte(`{"event":"invoice.paid","data":{}} {"again":1}`))
	assert.Error(t, err)

	_, err = DecodeWebhook([]byte(`{"event":"invoice.paid","data":{"payment_method":42}}`))
	assert.Error(t, err)
}
