package qpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/pkg/apperror"
)

// Client talks to the payment gateway. Idempotent operations go through the
// backoff executor; invoice and receipt creation go through the create-safe
// executor because the gateway offers no idempotency guarantee for them.
type Client struct {
	cfg        config.QPayConfig
	httpClient *http.Client
	tokens     *tokenSource

	idempotent Executor
	createSafe Executor
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg config.QPayConfig) *Client {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     newTokenSource(cfg, httpClient),
		idempotent: DefaultBackoffRetry(),
		createSafe: CreateSafeRetry{},
	}
}

// CreateInvoice issues a new gateway invoice. Non-idempotent: the executor
// retries only on failures that prove the request never reached the gateway.
func (c *Client) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error) {
	if req.InvoiceCode == "" {
		req.InvoiceCode = c.cfg.InvoiceCode
	}
	if req.CallbackURL == "" {
		req.CallbackURL = c.cfg.CallbackURL
	}

	var resp InvoiceResponse
	if err := c.do(ctx, c.createSafe, http.MethodPost, "/invoice", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckPayment queries the gateway's payment-check endpoint for all payment
// records against the given invoice.
func (c *Client) CheckPayment(ctx context.Context, invoiceID string) ([]PaymentRecord, error) {
	req := paymentCheckRequest{
		ObjectType: "INVOICE",
		ObjectID:   invoiceID,
		Offset:     pageOffset{PageNumber: 1, PageLimit: 100},
	}

	var resp paymentCheckResponse
	if err := c.do(ctx, c.idempotent, http.MethodPost, "/payment/check", "", req, &resp); err != nil {
		return nil, err
	}

	records := make([]PaymentRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		records = append(records, row.normalize())
	}
	return records, nil
}

// CancelInvoice voids an unpaid invoice.
func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	return c.do(ctx, c.idempotent, http.MethodDelete, "/invoice/"+invoiceID, "", nil, nil)
}

// CancelPayment cancels a settled payment.
func (c *Client) CancelPayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, c.idempotent, http.MethodDelete, "/payment/cancel/"+paymentID, "", nil, nil)
}

// RefundPayment refunds a settled payment.
func (c *Client) RefundPayment(ctx context.Context, paymentID string) error {
	return c.do(ctx, c.idempotent, http.MethodDelete, "/payment/refund/"+paymentID, "", nil, nil)
}

// CreateEbarimt requests a tax receipt for a settled payment. When req.Token
// carries the bearer cached at invoice creation, it is presented instead of
// the token cache's credential, saving an auth round-trip.
func (c *Client) CreateEbarimt(ctx context.Context, req *EbarimtRequest) (*EbarimtResponse, error) {
	var resp EbarimtResponse
	if err := c.do(ctx, c.createSafe, http.MethodPost, "/ebarimt/create", req.Token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ActiveToken exposes the currently cached bearer so the invoice coordinator
// can persist it alongside the invoice for later receipt reuse.
func (c *Client) ActiveToken() (string, time.Time, bool) {
	tok, ok := c.tokens.Active()
	if !ok {
		return "", time.Time{}, false
	}
	return tok.AccessToken, tok.Expiry, true
}

// do executes one gateway call: resolve the bearer, run the request under the
// given executor, map the response status, decode the body into out.
func (c *Client) do(ctx context.Context, exec Executor, method, path, bearer string, body, out interface{}) error {
	if bearer == "" {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		bearer = tok.AccessToken
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
	}

	op := func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	}

	resp, err := exec.Do(ctx, op)
	if err != nil {
		log.Printf("qpay: %s %s failed: %v", method, path, err)
		return apperror.ErrGatewayUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperror.ErrAuthenticationFailed
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperror.NewGatewayError(fmt.Sprintf("gateway %s %s returned %d: %s", method, path, resp.StatusCode, snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
