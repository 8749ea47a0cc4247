package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EventKind is the closed set of invoice events the reconciler acts on.
// Anything else decodes to EventOther and keeps its raw name.
type EventKind int

const (
	EventOther EventKind = iota
	EventPaid
	EventExpired
	EventFailed
	EventPending
	EventProcessing
)

func ParseEventKind(event string) EventKind {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "invoice.paid", "invoice.completed":
		return EventPaid
	case "invoice.expired":
		return EventExpired
	case "invoice.failed":
		return EventFailed
	case "invoice.pending":
		return EventPending
	case "invoice.processing":
		return EventProcessing
	default:
		return EventOther
	}
}

func (k EventKind) String() string {
	switch k {
	case EventPaid:
		return "paid"
	case EventExpired:
		return "expired"
	case EventFailed:
		return "failed"
	case EventPending:
		return "pending"
	case EventProcessing:
		return "processing"
	default:
		return "other"
	}
}

// WebhookEvent is the invoice callback body.
type WebhookEvent struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event" validate:"required"`
	// created comes as an RFC 3339 string or a Unix number, kept raw
	Created    json.RawMessage `json:"created,omitempty"`
	BusinessID string          `json:"business_id,omitempty"`
	Data       WebhookData     `json:"data"`
}

type WebhookData struct {
	ID               string         `json:"id,omitempty"`
	ExternalID       string         `json:"external_id" validate:"required"`
	Status           string         `json:"status,omitempty"`
	Amount           json.Number    `json:"amount,omitempty"`
	PaidAmount       json.Number    `json:"paid_amount,omitempty"`
	PaidAt           string         `json:"paid_at,omitempty"`
	Currency         string         `json:"currency,omitempty"`
	PayerEmail       string         `json:"payer_email,omitempty"`
	PaymentMethod    *PaymentMethod `json:"payment_method,omitempty"`
	PaymentChannel   string         `json:"payment_channel,omitempty"`
	BankCode         string         `json:"bank_code,omitempty"`
	EwalletType      string         `json:"ewallet_type,omitempty"`
	RetailOutletName string         `json:"retail_outlet_name,omitempty"`
}

func (e *WebhookEvent) Kind() EventKind {
	return ParseEventKind(e.Event)
}

// DedupKey identifies a delivery for duplicate suppression.
func (e *WebhookEvent) DedupKey() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Data.ExternalID + ":" + strings.ToLower(e.Event)
}

// DecodeWebhook parses one JSON object and rejects trailing content.
func DecodeWebhook(body []byte) (*WebhookEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var event WebhookEvent
	if err := dec.Decode(&event); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode webhook: unexpected data after JSON object")
	}
	return &event, nil
}

// PaymentMethod is the method the customer paid with. The gateway sends
// either an object or a bare type string with the sub-code in sibling
// fields, both decode into this shape.
type PaymentMethod struct {
	Type string `json:"type"`
	Code string `json:"code,omitempty"`
}

func (m *PaymentMethod) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = PaymentMethod{Type: s}
		return nil
	}

	var raw struct {
		Type             string `json:"type"`
		Code             string `json:"code"`
		BankCode         string `json:"bank_code"`
		EwalletType      string `json:"ewallet_type"`
		CardBrand        string `json:"card_brand"`
		RetailOutletName string `json:"retail_outlet_name"`
		ChannelCode      string `json:"channel_code"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("payment_method: %w", err)
	}

	*m = PaymentMethod{
		Type: raw.Type,
		Code: firstNonEmpty(raw.Code, raw.BankCode, raw.EwalletType, raw.CardBrand, raw.RetailOutletName, raw.ChannelCode),
	}
	return nil
}

// Method merges payment_method with the flat sibling fields. It returns
// nil when the payload names no method at all.
func (d *WebhookData) Method() *PaymentMethod {
	var m PaymentMethod
	if d.PaymentMethod != nil {
		m = *d.PaymentMethod
	}

	if m.Code == "" {
		m.Code = firstNonEmpty(d.BankCode, d.EwalletType, d.RetailOutletName, d.PaymentChannel)
	}
	if strings.EqualFold(m.Code, m.Type) {
		m.Code = ""
	}

	if m.Type == "" && m.Code == "" {
		return nil
	}
	return &m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
