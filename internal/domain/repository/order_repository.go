package repository

import (
	"context"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/pkg/pagination"
	"github.com/google/uuid"
)

// OrderFilterParams holds filter parameters for listing orders
type OrderFilterParams struct {
	Pagination     *pagination.PaginationParams
	Search         string
	Status         *enum.OrderStatus
	PaymentStatus  *enum.PaymentStatus
	CustomerID     *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	SkipUserFilter bool
}

// InvoiceFields holds the gateway invoice state persisted after a successful
// invoice creation call.
type InvoiceFields struct {
	InvoiceID    string
	QRText       string
	QRImage      *string
	Token        string
	TokenExpires time.Time
}

// PaidFields holds the settled payment fields applied on the PAID transition.
type PaidFields struct {
	PaymentID     string
	PaymentMethod string
	PaidAt        time.Time
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetByOrderNo(ctx context.Context, orderNo string) (*entity.Order, error)
	GetWithLines(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	OrderNoExists(ctx context.Context, orderNo string) (bool, error)
	Update(ctx context.Context, order *entity.Order) error
	List(ctx context.Context, userID uuid.UUID, params *OrderFilterParams) ([]entity.Order, int64, error)

	// SetInvoice persists the gateway invoice fields atomically, guarded by
	// qpay_invoice_id IS NULL. Returns false when the guard tripped, meaning
	// another writer already attached an invoice to this order.
	SetInvoice(ctx context.Context, id uuid.UUID, fields *InvoiceFields) (bool, error)

	// MarkPaid applies the PAID transition atomically, guarded by
	// payment_status = Pending. Returns false when the order had already left
	// the pending state, making the transition a no-op.
	MarkPaid(ctx context.Context, id uuid.UUID, fields *PaidFields) (bool, error)

	// UpdatePaymentStatus moves the payment status for cancel/refund flows.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, payment enum.PaymentStatus, status enum.OrderStatus) error

	// SetEbarimtID records the tax receipt identifier on the order row.
	SetEbarimtID(ctx context.Context, id uuid.UUID, ebarimtID string) error
}

// OrderLineRepository defines the interface for order line persistence
type OrderLineRepository interface {
	CreateBatch(ctx context.Context, lines []entity.OrderLine) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderLine, error)
}
