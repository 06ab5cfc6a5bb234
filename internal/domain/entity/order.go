package entity

import (
	"encoding/json"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the unit of payment reconciliation. Gateway-side state (invoice,
// payment, receipt) is cached on the row; the persisted fields are the sole
// source of truth across process restarts.
type Order struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID    *uuid.UUID         `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	OrderNo       string             `gorm:"size:100;unique;not null" json:"order_no"`
	OrderDate     time.Time          `gorm:"type:date;not null" json:"order_date"`
	Status        enum.OrderStatus   `gorm:"default:0" json:"status"`
	PaymentStatus enum.PaymentStatus `gorm:"default:0;index" json:"payment_status"`
	TotalProducts int                `gorm:"default:0" json:"total_products"`
	SubTotal      int64              `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	VAT           int64              `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	Total         int64              `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON

	// Delivery metadata
	DeliveryAddress *string `gorm:"type:text" json:"delivery_address,omitempty"`
	DeliveryPhone   *string `gorm:"size:50" json:"delivery_phone,omitempty"`

	// Gateway invoice state. QPayInvoiceID is set at most once per order;
	// the invoice coordinator enforces this, not the gateway.
	QPayInvoiceID *string `gorm:"size:100;index" json:"qpay_invoice_id,omitempty"`
	QPayQRText    *string `gorm:"type:text" json:"-"`
	QPayQRImage   *string `gorm:"type:text" json:"-"`

	// Bearer token used when the invoice was created, retained so a later
	// receipt request can reuse it within its validity window.
	QPayToken          *string    `gorm:"type:text" json:"-"`
	QPayTokenExpiresAt *time.Time `json:"-"`

	// First settled payment against the invoice
	QPayPaymentID *string    `gorm:"size:100" json:"qpay_payment_id,omitempty"`
	PaymentMethod *string    `gorm:"size:50" json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	// Tax receipt reference (full receipt row lives in ebarimt_receipts)
	EbarimtID *string `gorm:"size:100" json:"ebarimt_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User     User        `gorm:"foreignKey:UserID" json:"-"`
	Customer *Customer   `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Lines    []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (o Order) MarshalJSON() ([]byte, error) {
	type Alias Order
	return json.Marshal(&struct {
		Alias
		SubTotal float64 `json:"sub_total"`
		VAT      float64 `json:"vat"`
		Total    float64 `json:"total"`
	}{
		Alias:    Alias(o),
		SubTotal: float64(o.SubTotal) / 100,
		VAT:      float64(o.VAT) / 100,
		Total:    float64(o.Total) / 100,
	})
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// GetTotalDecimal returns the total as a decimal
func (o *Order) GetTotalDecimal() float64 {
	return float64(o.Total) / 100
}

// Payable reports whether an invoice may still be created for this order
func (o *Order) Payable() bool {
	return o.PaymentStatus == enum.PaymentStatusPending &&
		o.Status == enum.OrderStatusPending
}

// Itemized reports whether the order carries line items. Amount-only orders
// produce non-itemized invoices and are not eligible for a tax receipt.
func (o *Order) Itemized() bool {
	return len(o.Lines) > 0
}

// TokenReusable reports whether the token cached at invoice creation still has
// at least margin of validity left.
func (o *Order) TokenReusable(margin time.Duration) bool {
	if o.QPayToken == nil || o.QPayTokenExpiresAt == nil {
		return false
	}
	return time.Until(*o.QPayTokenExpiresAt) > margin
}

// OrderLine is a line item snapshot taken at order time
type OrderLine struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID uuid.UUID      `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	UnitPrice int64          `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
	Total     int64          `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
	VATAmount int64          `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (l OrderLine) MarshalJSON() ([]byte, error) {
	type Alias OrderLine
	return json.Marshal(&struct {
		Alias
		UnitPrice float64 `json:"unit_price"`
		Total     float64 `json:"total"`
		VATAmount float64 `json:"vat_amount"`
	}{
		Alias:     Alias(l),
		UnitPrice: float64(l.UnitPrice) / 100,
		Total:     float64(l.Total) / 100,
		VATAmount: float64(l.VATAmount) / 100,
	})
}

// BeforeCreate generates a UUID before creating a new order line
func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderLine model
func (OrderLine) TableName() string {
	return "order_lines"
}
