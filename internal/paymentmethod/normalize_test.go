package paymentmethod

import (
	"testing"

	"service-marketplace/pkg/gateway"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	cases := []struct {
		name   string
		method gateway.PaymentMethod
		want   string
	}{
		{"known bank", gateway.PaymentMethod{Type: "BANK_TRANSFER", Code: "BCA"}, "BCA Virtual Account"},
		{"virtual account alias", gateway.PaymentMethod{Type: "VIRTUAL_ACCOUNT", Code: "mandiri"}, "Mandiri Virtual Account"},
		{"unknown bank", gateway.PaymentMethod{Type: "BANK_TRANSFER", Code: "XYZ"}, "Bank Transfer (XYZ)"},
		{"bank without code", gateway.PaymentMethod{Type: "BANK_TRANSFER"}, "Bank Transfer"},
		{"ewallet", gateway.PaymentMethod{Type: "EWALLET", Code: "SHOPEEPAY"}, "ShopeePay"},
		{"ewallet lowercase", gateway.PaymentMethod{Type: "ewallet", Code: "linkaja"}, "LinkAja"},
		{"unknown ewallet", gateway.PaymentMethod{Type: "EWALLET", Code: "FOO"}, "E-Wallet (FOO)"},
		{"qris", gateway.PaymentMethod{Type: "QRIS"}, "QRIS"},
		{"qr code", gateway.PaymentMethod{Type: "QR_CODE", Code: "QRIS"}, "QRIS"},
		{"card brand", gateway.PaymentMethod{Type: "CREDIT_CARD", Code: "VISA"}, "Visa Credit Card"},
		{"card alias", gateway.PaymentMethod{Type: "CARD", Code: "AMEX"}, "American Express Credit Card"},
		{"unknown card", gateway.PaymentMethod{Type: "CREDIT_CARD", Code: "DISCOVER"}, "Credit Card (DISCOVER)"},
		{"retail", gateway.PaymentMethod{Type: "RETAIL_OUTLET", Code: "ALFAMART"}, "Alfamart"},
		{"unknown retail", gateway.PaymentMethod{Type: "RETAIL_OUTLET", Code: "LAWSON"}, "Retail Outlet (LAWSON)"},
		{"unknown type", gateway.PaymentMethod{Type: "DIRECT_DEBIT", Code: "BRI"}, "Direct Debit"},
		{"code only", gateway.PaymentMethod{Code: "OVO"}, "OVO"},
		{"nothing", gateway.PaymentMethod{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Label(tc.method))
		})
	}
}

func TestLabelIsPure(t *testing.T) {
	m := gateway.PaymentMethod{Type: "BANK_TRANSFER", Code: "BNI"}
	first := Label(m)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Label(m))
	}
	assert.Equal(t, "BANK_TRANSFER", m.Type)
}
