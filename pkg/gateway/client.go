package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"service-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const invoicePath = "/v2/invoices"

type InvoiceRequest struct {
	ExternalID  string
	Amount      decimal.Decimal
	PayerEmail  string
	Description string
}

type Invoice struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
}

type createInvoiceBody struct {
	ExternalID         string      `json:"external_id"`
	Amount             json.Number `json:"amount"`
	PayerEmail         string      `json:"payer_email"`
	Description        string      `json:"description"`
	Currency           string      `json:"currency"`
	InvoiceDuration    int64       `json:"invoice_duration,omitempty"`
	SuccessRedirectURL string      `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string      `json:"failure_redirect_url,omitempty"`
}

// Client creates hosted invoices on the payment gateway.
type Client interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error)
}

type httpClient struct {
	cfg     utils.GatewayConfig
	http    *http.Client
	breaker *CircuitBreaker
	log     *zap.Logger
}

func NewClient(cfg utils.GatewayConfig, log *zap.Logger) Client {
	return NewClientWithHTTP(cfg, &http.Client{}, log)
}

func NewClientWithHTTP(cfg utils.GatewayConfig, hc *http.Client, log *zap.Logger) Client {
	return &httpClient{
		cfg:     cfg,
		http:    hc,
		breaker: NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerReset),
		log:     log.With(zap.String("client", "gateway")),
	}
}

func (c *httpClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	ctx, span := otel.Tracer("gateway").Start(ctx, "gateway.CreateInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.external_id", req.ExternalID))

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var (
		invoice *Invoice
		callErr error
	)
	err := c.breaker.Execute(func() bool {
		invoice, callErr = c.post(ctx, req)
		return callErr != nil && CategoryOf(callErr) == CategoryTemporarilyUnavailable
	})
	if errors.Is(err, ErrCircuitOpen) {
		span.SetAttributes(attribute.String("circuit.state", "open"))
		callErr = &Error{Category: CategoryTemporarilyUnavailable, Err: err}
	}

	if callErr != nil {
		span.RecordError(callErr)
		span.SetStatus(codes.Error, string(CategoryOf(callErr)))
		return nil, callErr
	}

	span.SetAttributes(attribute.String("invoice.id", invoice.ID))
	return invoice, nil
}

func (c *httpClient) post(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	body := createInvoiceBody{
		ExternalID:         req.ExternalID,
		Amount:             json.Number(req.Amount.String()),
		PayerEmail:         req.PayerEmail,
		Description:        req.Description,
		Currency:           c.cfg.Currency,
		InvoiceDuration:    int64(c.cfg.InvoiceDuration / time.Second),
		SuccessRedirectURL: c.cfg.SuccessRedirectURL,
		FailureRedirectURL: c.cfg.FailureRedirectURL,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Category: CategoryGeneric, Err: fmt.Errorf("marshal invoice body: %w", err)}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + invoicePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Category: CategoryGeneric, Err: fmt.Errorf("build invoice request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.SecretKey, "")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Error("Gateway request failed",
			zap.Error(err),
			zap.String("external_id", req.ExternalID),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, &Error{Category: CategoryTemporarilyUnavailable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Category: CategoryTemporarilyUnavailable, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &Error{
			Category:   CategoryForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
		c.log.Error("Gateway rejected invoice",
			zap.Int("status", resp.StatusCode),
			zap.String("category", string(gwErr.Category)),
			zap.String("body", gwErr.Body),
			zap.String("external_id", req.ExternalID),
		)
		return nil, gwErr
	}

	var invoice Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil || invoice.ID == "" || invoice.InvoiceURL == "" {
		if err == nil {
			err = errors.New("invoice response missing id or invoice_url")
		}
		c.log.Error("Gateway returned unusable invoice",
			zap.Error(err),
			zap.String("body", string(raw)),
		)
		return nil, &Error{Category: CategoryGeneric, StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}

	c.log.Info("Invoice created",
		zap.String("external_id", req.ExternalID),
		zap.String("invoice_id", invoice.ID),
		zap.Duration("duration", time.Since(start)),
	)
	return &invoice, nil
}
