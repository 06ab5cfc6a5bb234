package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/badrakh/monshop-api/pkg/pagination"
	"github.com/google/uuid"
)

// CreateOrderInput holds the fields for creating an order
type CreateOrderInput struct {
	UserID          uuid.UUID
	CustomerID      *uuid.UUID
	DeliveryAddress *string
	DeliveryPhone   *string
	Items           []OrderItemInput
}

// OrderItemInput is one requested product and quantity
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderService handles order creation and retrieval. Prices are snapshotted
// onto order lines at creation time; per-line VAT is computed from the
// product's tax classification with VAT treated as included in the price.
type OrderService struct {
	orderRepo   repository.OrderRepository
	lineRepo    repository.OrderLineRepository
	productRepo repository.ProductRepository
	cfg         *config.QPayConfig
}

func NewOrderService(orderRepo repository.OrderRepository, lineRepo repository.OrderLineRepository, productRepo repository.ProductRepository, cfg *config.QPayConfig) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		lineRepo:    lineRepo,
		productRepo: productRepo,
		cfg:         cfg,
	}
}

// CreateOrder creates an order with line snapshots, decrementing stock
// atomically so concurrent orders cannot oversell.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*entity.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperror.NewValidationError([]apperror.FieldError{
			{Field: "items", Message: "Order must have at least one item"},
		})
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	decrements := make(map[uuid.UUID]int, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, apperror.NewValidationError([]apperror.FieldError{
				{Field: "quantity", Message: "Item quantity must be positive"},
			})
		}
		ids = append(ids, item.ProductID)
		decrements[item.ProductID] += item.Quantity
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	byID := make(map[uuid.UUID]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, item := range input.Items {
		if _, ok := byID[item.ProductID]; !ok {
			return nil, apperror.NewNotFoundError("Product")
		}
	}

	failed, err := s.productRepo.AtomicDecrementBatch(ctx, decrements)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if len(failed) > 0 {
		return nil, apperror.NewAppError(422, "Insufficient stock for one or more products")
	}

	var subTotal, totalVAT int64
	totalQty := 0
	lines := make([]entity.OrderLine, 0, len(input.Items))
	for _, item := range input.Items {
		product := byID[item.ProductID]
		lineTotal := product.SellingPrice * int64(item.Quantity)

		// VAT is included in the selling price: vat = total * r / (1 + r).
		var vat int64
		if product.TaxType == enum.TaxTypeVATable && s.cfg.VATRate > 0 {
			vat = int64(float64(lineTotal) * s.cfg.VATRate / (1 + s.cfg.VATRate))
		}

		lines = append(lines, entity.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.SellingPrice,
			Total:     lineTotal,
			VATAmount: vat,
		})
		subTotal += lineTotal
		totalVAT += vat
		totalQty += item.Quantity
	}

	orderNo, err := s.generateOrderNo(ctx)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}

	order := &entity.Order{
		UserID:          input.UserID,
		CustomerID:      input.CustomerID,
		OrderNo:         orderNo,
		OrderDate:       time.Now(),
		Status:          enum.OrderStatusPending,
		PaymentStatus:   enum.PaymentStatusPending,
		TotalProducts:   totalQty,
		SubTotal:        subTotal,
		VAT:             totalVAT,
		Total:           subTotal,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryPhone:   input.DeliveryPhone,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, apperror.ErrInternalServer
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := s.lineRepo.CreateBatch(ctx, lines); err != nil {
		return nil, apperror.ErrInternalServer
	}

	order.Lines = lines
	return order, nil
}

// GetOrder fetches an order with its lines, enforcing ownership unless the
// caller is an admin.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID, userID uuid.UUID, isAdmin bool) (*entity.Order, error) {
	order, err := s.orderRepo.GetWithLines(ctx, id)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	if !isAdmin && order.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return order, nil
}

// ListOrders returns the caller's orders, or all orders for admins.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, isAdmin bool, params *repository.OrderFilterParams) (*pagination.PaginatedResult[entity.Order], error) {
	if params == nil {
		params = &repository.OrderFilterParams{}
	}
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()
	params.SkipUserFilter = isAdmin

	orders, total, err := s.orderRepo.List(ctx, userID, params)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	return pagination.NewPaginatedResult(orders, total, params.Pagination), nil
}

// generateOrderNo produces a date-coded order number like SO-20260828-A1B2,
// re-rolling the random suffix on the rare collision.
func (s *OrderService) generateOrderNo(ctx context.Context) (string, error) {
	datePart := time.Now().Format("20060102")
	for attempt := 0; attempt < 5; attempt++ {
		buf := make([]byte, 2)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		orderNo := fmt.Sprintf("SO-%s-%s", datePart, strings.ToUpper(hex.EncodeToString(buf)))

		exists, err := s.orderRepo.OrderNoExists(ctx, orderNo)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderNo, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number")
}
