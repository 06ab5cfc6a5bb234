// Package qpay implements the payment gateway client: credential caching,
// the safe request executor and the HTTP/JSON endpoints for invoices,
// payment checks, cancellations, refunds and tax receipts.
package qpay

import (
	"encoding/json"
	"strings"
	"time"
)

// InvoiceRequest is the payload for POST /invoice.
type InvoiceRequest struct {
	InvoiceCode         string        `json:"invoice_code"`
	SenderInvoiceNo     string        `json:"sender_invoice_no"`
	InvoiceReceiverCode string        `json:"invoice_receiver_code"`
	InvoiceDescription  string        `json:"invoice_description"`
	Amount              float64       `json:"amount"`
	CallbackURL         string        `json:"callback_url"`
	Lines               []InvoiceLine `json:"lines,omitempty"`
}

// InvoiceLine is an itemized invoice line with its tax amounts.
type InvoiceLine struct {
	LineDescription string       `json:"line_description"`
	LineQuantity    float64      `json:"line_quantity"`
	LineUnitPrice   float64      `json:"line_unit_price"`
	Taxes           []InvoiceTax `json:"taxes,omitempty"`
}

// InvoiceTax is a per-line tax amount.
type InvoiceTax struct {
	TaxCode string  `json:"tax_code"`
	Amount  float64 `json:"amount"`
}

// InvoiceResponse is returned on invoice creation. QRImage may be empty;
// callers regenerate it from QRText in that case.
type InvoiceResponse struct {
	InvoiceID string     `json:"invoice_id"`
	QRText    string     `json:"qr_text"`
	QRImage   string     `json:"qr_image"`
	Deeplinks []Deeplink `json:"urls"`
}

// Deeplink is a bank application link offered alongside the QR code.
type Deeplink struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Link        string `json:"link"`
}

// paymentCheckRequest is the payload for POST /payment/check.
type paymentCheckRequest struct {
	ObjectType string     `json:"object_type"`
	ObjectID   string     `json:"object_id"`
	Offset     pageOffset `json:"offset"`
}

type pageOffset struct {
	PageNumber int `json:"page_number"`
	PageLimit  int `json:"page_limit"`
}

type paymentCheckResponse struct {
	Count int                 `json:"count"`
	Rows  []paymentRecordWire `json:"rows"`
}

// paymentRecordWire tolerates the gateway's snake_case/camelCase variance in
// the payment id and status fields across API revisions. normalize() yields
// the one canonical shape the rest of the system works with.
type paymentRecordWire struct {
	PaymentID      json.Number `json:"payment_id"`
	PaymentIDCamel json.Number `json:"paymentId"`
	Status         string      `json:"payment_status"`
	StatusCamel    string      `json:"paymentStatus"`
	Method         string      `json:"payment_method"`
	Amount         float64     `json:"payment_amount"`
	Date           string      `json:"payment_date"`
}

func (w paymentRecordWire) normalize() PaymentRecord {
	id := w.PaymentID.String()
	if id == "" {
		id = w.PaymentIDCamel.String()
	}
	status := w.Status
	if status == "" {
		status = w.StatusCamel
	}

	rec := PaymentRecord{
		ID:     id,
		Status: strings.ToUpper(status),
		Method: w.Method,
		Amount: w.Amount,
	}
	if w.Date != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, w.Date); err == nil {
				rec.Date = t
				break
			}
		}
	}
	return rec
}

// PaymentRecord is the canonical shape of one gateway payment row.
type PaymentRecord struct {
	ID     string
	Status string
	Method string
	Amount float64
	Date   time.Time
}

// Settled reports whether the record's status means the payment completed.
// The gateway's vocabulary varies across endpoints and versions.
func (r PaymentRecord) Settled() bool {
	switch r.Status {
	case "PAID", "SUCCESS", "COMPLETED":
		return true
	}
	return false
}

// EbarimtRequest is the payload for POST /ebarimt/create. Token optionally
// carries the bearer cached at invoice creation; empty means fetch a fresh one.
type EbarimtRequest struct {
	PaymentID    string `json:"payment_id"`
	ReceiverType string `json:"ebarimt_receiver_type"`
	Receiver     string `json:"ebarimt_receiver,omitempty"`

	Token string `json:"-"`
}

// EbarimtResponse carries the receipt fields the gateway returns only on the
// creation call; callers must persist them immediately.
type EbarimtResponse struct {
	ID            string  `json:"id"`
	Status        string  `json:"ebarimt_status"`
	QRData        string  `json:"ebarimt_qr_data"`
	Lottery       string  `json:"ebarimt_lottery"`
	Amount        float64 `json:"amount"`
	VATAmount     float64 `json:"vat_amount"`
	CityTaxAmount float64 `json:"city_tax_amount"`
}

// CallbackPayload is what the gateway pushes to our callback URL. Its claimed
// status is never trusted; reconciliation re-verifies via payment/check.
type CallbackPayload struct {
	QPayPaymentID json.Number `json:"qpay_payment_id"`
	PaymentID     json.Number `json:"payment_id"`
	Status        string      `json:"payment_status"`
}
