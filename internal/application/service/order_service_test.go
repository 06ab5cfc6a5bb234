package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFixture(products ...*entity.Product) (*OrderService, *fakeOrderRepo, *fakeProductRepo) {
	orderRepo := newFakeOrderRepo()
	lineRepo := &fakeLineRepo{}
	productRepo := newFakeProductRepo(products...)
	return NewOrderService(orderRepo, lineRepo, productRepo, testQPayServiceConfig()), orderRepo, productRepo
}

type fakeLineRepo struct {
	lines []entity.OrderLine
}

func (r *fakeLineRepo) CreateBatch(ctx context.Context, lines []entity.OrderLine) error {
	r.lines = append(r.lines, lines...)
	return nil
}

func (r *fakeLineRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderLine, error) {
	var out []entity.OrderLine
	for _, l := range r.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestCreateOrder_ComputesTotalsAndVAT(t *testing.T) {
	vatable := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 10, SellingPrice: 5500, TaxType: enum.TaxTypeVATable}
	vatFree := &entity.Product{ID: uuid.New(), Name: "Book", Code: "BK-1", Quantity: 10, SellingPrice: 10000, TaxType: enum.TaxTypeVATFree}
	svc, _, _ := newOrderFixture(vatable, vatFree)

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items: []OrderItemInput{
			{ProductID: vatable.ID, Quantity: 2},
			{ProductID: vatFree.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(21000), order.SubTotal)
	assert.Equal(t, int64(21000), order.Total)
	assert.Equal(t, 3, order.TotalProducts)
	assert.Equal(t, enum.OrderStatusPending, order.Status)
	assert.Equal(t, enum.PaymentStatusPending, order.PaymentStatus)

	// VAT included in the price: 11000 * 0.1 / 1.1 = 1000.
	assert.Equal(t, int64(1000), order.VAT)

	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(1000), order.Lines[0].VATAmount)
	assert.Equal(t, int64(0), order.Lines[1].VATAmount)
	assert.Equal(t, int64(5500), order.Lines[0].UnitPrice)
}

func TestCreateOrder_OrderNumberFormat(t *testing.T) {
	product := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 10, SellingPrice: 5000}
	svc, _, _ := newOrderFixture(product)

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^SO-\d{8}-[0-9A-F]{4}$`), order.OrderNo)
}

func TestCreateOrder_OrderNumberCollisionReRolls(t *testing.T) {
	product := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 10, SellingPrice: 5000}
	svc, orderRepo, _ := newOrderFixture(product)
	orderRepo.orderNoCollisions = 2

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, orderRepo.orderNoChecks, "two collisions then a free number")
	assert.Regexp(t, regexp.MustCompile(`^SO-\d{8}-[0-9A-F]{4}$`), order.OrderNo)
}

func TestCreateOrder_OrderNumberGivesUpAfterRetries(t *testing.T) {
	product := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 10, SellingPrice: 5000}
	svc, orderRepo, _ := newOrderFixture(product)
	orderRepo.orderNoCollisions = 5

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, 5, orderRepo.orderNoChecks)
}

func TestCreateOrder_DecrementsStock(t *testing.T) {
	product := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 5, SellingPrice: 5000}
	svc, _, productRepo := newOrderFixture(product)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	stored, _ := productRepo.GetByID(context.Background(), product.ID)
	assert.Equal(t, 2, stored.Quantity)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	product := &entity.Product{ID: uuid.New(), Name: "Notebook", Code: "NB-1", Quantity: 1, SellingPrice: 5000}
	svc, _, productRepo := newOrderFixture(product)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: product.ID, Quantity: 2}},
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Code)

	stored, _ := productRepo.GetByID(context.Background(), product.ID)
	assert.Equal(t, 1, stored.Quantity, "stock must be untouched on failure")
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		UserID: uuid.New(),
		Items:  []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _, _ := newOrderFixture()

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{UserID: uuid.New()})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Code)
	require.Len(t, appErr.Errors, 1)
	assert.Equal(t, "items", appErr.Errors[0].Field)
}

func TestGetOrder_EnforcesOwnership(t *testing.T) {
	order := pendingOrder(10000)
	orderRepo := newFakeOrderRepo(order)
	svc := NewOrderService(orderRepo, &fakeLineRepo{}, newFakeProductRepo(), testQPayServiceConfig())

	_, err := svc.GetOrder(context.Background(), order.ID, uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := svc.GetOrder(context.Background(), order.ID, order.UserID, false)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = svc.GetOrder(context.Background(), order.ID, uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}
