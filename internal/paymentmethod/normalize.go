// Package paymentmethod turns the gateway's payment method codes into
// the labels shown on receipts and in the admin console.
package paymentmethod

import (
	"strings"

	"service-marketplace/pkg/gateway"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type category struct {
	name     string
	fallback string
	labels   map[string]string
}

var (
	bankTransfer = category{
		name:     "Bank Transfer",
		fallback: "Bank Transfer",
		labels: map[string]string{
			"BCA":               "BCA Virtual Account",
			"BNI":               "BNI Virtual Account",
			"BRI":               "BRI Virtual Account",
			"MANDIRI":           "Mandiri Virtual Account",
			"PERMATA":           "Permata Virtual Account",
			"BSI":               "BSI Virtual Account",
			"CIMB":              "CIMB Niaga Virtual Account",
			"BJB":               "BJB Virtual Account",
			"BNC":               "BNC Virtual Account",
			"SAHABAT_SAMPOERNA": "Bank Sahabat Sampoerna Virtual Account",
		},
	}
	ewallet = category{
		name:     "E-Wallet",
		fallback: "E-Wallet",
		labels: map[string]string{
			"OVO":       "OVO",
			"DANA":      "DANA",
			"LINKAJA":   "LinkAja",
			"SHOPEEPAY": "ShopeePay",
			"GOPAY":     "GoPay",
			"ASTRAPAY":  "AstraPay",
			"JENIUSPAY": "Jenius Pay",
		},
	}
	qris = category{
		name:     "QRIS",
		fallback: "QRIS",
	}
	card = category{
		name:     "Credit Card",
		fallback: "Credit Card",
		labels: map[string]string{
			"VISA":       "Visa Credit Card",
			"MASTERCARD": "Mastercard Credit Card",
			"JCB":        "JCB Credit Card",
			"AMEX":       "American Express Credit Card",
		},
	}
	retail = category{
		name:     "Retail Outlet",
		fallback: "Retail Outlet",
		labels: map[string]string{
			"ALFAMART":  "Alfamart",
			"INDOMARET": "Indomaret",
		},
	}
)

var categories = map[string]category{
	"BANK_TRANSFER":   bankTransfer,
	"VIRTUAL_ACCOUNT": bankTransfer,
	"EWALLET":         ewallet,
	"E_WALLET":        ewallet,
	"QRIS":            qris,
	"QR_CODE":         qris,
	"CREDIT_CARD":     card,
	"CARD":            card,
	"DEBIT_CARD":      card,
	"RETAIL_OUTLET":   retail,
}

// Label returns the human readable name for a gateway payment method.
// Known sub-codes map to fixed labels, unknown ones keep the raw code in
// parentheses after the category, and unknown types are title-cased.
func Label(method gateway.PaymentMethod) string {
	typ := normalizeKey(method.Type)
	code := normalizeKey(method.Code)

	if typ == "" {
		return labelForCode(code)
	}

	cat, ok := categories[typ]
	if !ok {
		return titleCase(typ)
	}

	if code == "" || cat.labels == nil {
		return cat.name
	}
	if label, ok := cat.labels[code]; ok {
		return label
	}
	return cat.fallback + " (" + code + ")"
}

// labelForCode handles payloads that only carry a channel code.
func labelForCode(code string) string {
	if code == "" {
		return ""
	}
	for _, cat := range []category{bankTransfer, ewallet, card, retail} {
		if label, ok := cat.labels[code]; ok {
			return label
		}
	}
	if cat, ok := categories[code]; ok {
		return cat.name
	}
	return titleCase(code)
}

func normalizeKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func titleCase(key string) string {
	// a Caser is stateful, so one per call
	return cases.Title(language.English).String(strings.ToLower(strings.ReplaceAll(key, "_", " ")))
}
