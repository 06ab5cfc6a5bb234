package repository

import (
	"context"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/google/uuid"
)

// ReceiptRepository defines the interface for tax receipt persistence
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.EbarimtReceipt) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.EbarimtReceipt, error)
}
