package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"service-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig(baseURL string) utils.GatewayConfig {
	return utils.GatewayConfig{
		BaseURL:            baseURL,
		SecretKey:          "xnd_development_secret",
		Currency:           "IDR",
		Timeout:            2 * time.Second,
		InvoiceDuration:    24 * time.Hour,
		BreakerMaxFailures: 3,
		BreakerReset:       time.Minute,
	}
}

func sampleRequest() InvoiceRequest {
	return InvoiceRequest{
		ExternalID:  "BOOKING-a-b",
		Amount:      decimal.NewFromInt(250000),
		PayerEmail:  "seeker@example.com",
		Description: "Deep cleaning",
	}
}

func TestCreateInvoiceSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/invoices", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "xnd_development_secret", user)
		assert.Empty(t, pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BOOKING-a-b", body["external_id"])
		assert.Equal(t, float64(250000), body["amount"])
		assert.Equal(t, "seeker@example.com", body["payer_email"])
		assert.Equal(t, "IDR", body["currency"])
		assert.Equal(t, float64(86400), body["invoice_duration"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"inv_1","invoice_url":"https://pay.example/inv_1","status":"PENDING"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))

	invoice, err := client.CreateInvoice(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "inv_1", invoice.ID)
	assert.Equal(t, "https://pay.example/inv_1", invoice.InvoiceURL)
}

func TestCreateInvoiceStatusCategories(t *testing.T) {
	cases := []struct {
		status   int
		category Category
	}{
		{http.StatusInternalServerError, CategoryTemporarilyUnavailable},
		{http.StatusServiceUnavailable, CategoryTemporarilyUnavailable},
		{http.StatusUnauthorized, CategoryConfiguration},
		{http.StatusForbidden, CategoryConfiguration},
		{http.StatusBadRequest, CategoryInvalidRequest},
		{http.StatusUnprocessableEntity, CategoryInvalidRequest},
		{http.StatusConflict, CategoryConflict},
		{http.StatusTeapot, CategoryGeneric},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"error_code":"SOMETHING","message":"secret detail"}`))
			}))
			defer srv.Close()

			client := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
			_, err := client.CreateInvoice(context.Background(), sampleRequest())
			require.Error(t, err)

			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tc.category, gwErr.Category)
			assert.Equal(t, tc.status, gwErr.StatusCode)
			assert.NotContains(t, gwErr.Category.UserMessage(), "secret detail")
		})
	}
}

func TestCreateInvoiceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(cfg, zaptest.NewLogger(t))

	_, err := client.CreateInvoice(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, CategoryTemporarilyUnavailable, CategoryOf(err))
}

func TestCreateInvoiceMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"inv_1"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	_, err := client.CreateInvoice(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Equal(t, CategoryGeneric, CategoryOf(err))
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, err := client.CreateInvoice(context.Background(), sampleRequest())
		require.Error(t, err)
	}

	_, err := client.CreateInvoice(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CategoryTemporarilyUnavailable, CategoryOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), zaptest.NewLogger(t))
	for i := 0; i < 5; i++ {
		_, err := client.CreateInvoice(context.Background(), sampleRequest())
		assert.Equal(t, CategoryInvalidRequest, CategoryOf(err))
	}
	assert.Equal(t, int32(5), calls.Load())
}
