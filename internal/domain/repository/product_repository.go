package repository

import (
	"context"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error

	// AtomicDecrementBatch decrements stock for the given product quantities in
	// one statement per product, failing the whole batch when any product has
	// insufficient stock. Returns the IDs that could not be decremented.
	AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error)
}
