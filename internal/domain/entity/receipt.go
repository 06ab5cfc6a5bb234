package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EbarimtReceipt is the government tax receipt issued against a settled,
// itemized payment. The gateway returns the QR data, lottery code and tax
// amounts only on the creation call, so everything is persisted immediately;
// later look-ups may omit these fields.
type EbarimtReceipt struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	EbarimtID     string    `gorm:"size:100;not null" json:"ebarimt_id"`
	QPayPaymentID string    `gorm:"size:100;not null" json:"qpay_payment_id"`
	ReceiverType  string    `gorm:"size:20;not null" json:"receiver_type"`
	Receiver      *string   `gorm:"size:50" json:"receiver,omitempty"`
	Status        string    `gorm:"size:50" json:"status"`
	QRData        *string   `gorm:"type:text" json:"qr_data,omitempty"`
	Lottery       *string   `gorm:"size:50" json:"lottery,omitempty"`
	Amount        int64     `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	VATAmount     int64     `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	CityTaxAmount int64     `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (r EbarimtReceipt) MarshalJSON() ([]byte, error) {
	type Alias EbarimtReceipt
	return json.Marshal(&struct {
		Alias
		Amount        float64 `json:"amount"`
		VATAmount     float64 `json:"vat_amount"`
		CityTaxAmount float64 `json:"city_tax_amount"`
	}{
		Alias:         Alias(r),
		Amount:        float64(r.Amount) / 100,
		VATAmount:     float64(r.VATAmount) / 100,
		CityTaxAmount: float64(r.CityTaxAmount) / 100,
	})
}

// BeforeCreate generates a UUID before creating a new receipt
func (r *EbarimtReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the EbarimtReceipt model
func (EbarimtReceipt) TableName() string {
	return "ebarimt_receipts"
}
