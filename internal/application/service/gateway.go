package service

import (
	"context"
	"time"

	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/pkg/email"
)

// PaymentGateway is the slice of the gateway client the payment services
// depend on. Tests substitute a fake; production wires *qpay.Client.
type PaymentGateway interface {
	CreateInvoice(ctx context.Context, req *qpay.InvoiceRequest) (*qpay.InvoiceResponse, error)
	CheckPayment(ctx context.Context, invoiceID string) ([]qpay.PaymentRecord, error)
	CancelInvoice(ctx context.Context, invoiceID string) error
	CancelPayment(ctx context.Context, paymentID string) error
	RefundPayment(ctx context.Context, paymentID string) error
	CreateEbarimt(ctx context.Context, req *qpay.EbarimtRequest) (*qpay.EbarimtResponse, error)

	// ActiveToken returns the currently cached bearer token and its expiry
	// without triggering a refresh. ok is false when no usable token is held.
	ActiveToken() (token string, expires time.Time, ok bool)
}

// Mailer sends customer notifications. Nil-checked at call sites so the
// services work without an SMTP configuration.
type Mailer interface {
	SendPaymentConfirmedEmail(toEmail string, data email.PaymentConfirmation) error
}
