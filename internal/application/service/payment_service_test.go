package service

import (
	"context"
	"testing"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentFixture(order *entity.Order, gateway *fakeGateway) (*PaymentService, *fakeOrderRepo) {
	orderRepo := newFakeOrderRepo(order)
	receiptRepo := newFakeReceiptRepo()
	cfg := testQPayServiceConfig()
	receipts := NewReceiptService(orderRepo, receiptRepo, gateway, cfg)
	cache := NewStatusCache(cfg.StatusCacheTTL)
	reconcile := NewReconcileService(orderRepo, gateway, receipts, cache, nil)
	limiter := NewCheckLimiter(cfg.CheckInterval)
	return NewPaymentService(orderRepo, gateway, reconcile, cache, limiter), orderRepo
}

func TestGetStatus_PaidOrderNeverCallsGateway(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	order.PaymentStatus = enum.PaymentStatusPaid
	order.Status = enum.OrderStatusPaid
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	view, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.PaymentStatusPaid, view.PaymentStatus)
	assert.True(t, view.Verified)
	assert.True(t, view.ShouldStopPolling)
	assert.Equal(t, 0, gateway.checkCalls)
}

func TestGetStatus_VerifiesPendingOrderOnce(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	gateway := &fakeGateway{checkRecords: []qpay.PaymentRecord{settledRecord("pay-1")}}
	svc, _ := newPaymentFixture(order, gateway)

	view, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.PaymentStatusPaid, view.PaymentStatus)
	assert.True(t, view.Verified)
	assert.True(t, view.ShouldStopPolling)
	assert.False(t, view.Cached)
	assert.Equal(t, 1, gateway.checkCalls)
}

func TestGetStatus_SecondQueryServedFromCache(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	first, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.PaymentStatus, second.PaymentStatus)
	assert.Equal(t, 1, gateway.checkCalls)
}

func TestGetStatus_CheckIntervalThrottlesGateway(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	gateway := &fakeGateway{}
	orderRepo := newFakeOrderRepo(order)
	receiptRepo := newFakeReceiptRepo()
	cfg := testQPayServiceConfig()
	receipts := NewReceiptService(orderRepo, receiptRepo, gateway, cfg)

	// Zero-TTL cache so every query reaches the limiter.
	cache := NewStatusCache(0)
	reconcile := NewReconcileService(orderRepo, gateway, receipts, cache, nil)
	limiter := NewCheckLimiter(time.Hour)
	svc := NewPaymentService(orderRepo, gateway, reconcile, cache, limiter)

	first, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, first.RateLimited)

	second, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, second.RateLimited)
	assert.False(t, second.Verified)
	assert.Equal(t, enum.PaymentStatusPending, second.PaymentStatus)
	assert.Equal(t, 1, gateway.checkCalls)
}

func TestGetStatus_GatewayFailureReportsPendingUnverified(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	gateway := &fakeGateway{checkErr: context.DeadlineExceeded}
	svc, _ := newPaymentFixture(order, gateway)

	view, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.PaymentStatusPending, view.PaymentStatus)
	assert.False(t, view.Verified)
	assert.False(t, view.ShouldStopPolling)
}

func TestGetStatus_NoInvoiceReturnsPersistedState(t *testing.T) {
	order := pendingOrder(10000)
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	view, err := svc.GetStatus(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.PaymentStatusPending, view.PaymentStatus)
	assert.Equal(t, 0, gateway.checkCalls)
}

func TestGetStatus_UnknownOrder(t *testing.T) {
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(pendingOrder(10000), gateway)

	_, err := svc.GetStatus(context.Background(), uuid.New())
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Code)
}

func TestCancel_VoidsInvoiceAndMarksCancelled(t *testing.T) {
	order := withInvoice(pendingOrder(10000), "inv-1")
	gateway := &fakeGateway{}
	svc, orderRepo := newPaymentFixture(order, gateway)

	require.NoError(t, svc.Cancel(context.Background(), order.ID))

	assert.Equal(t, 1, gateway.cancelInvoiceCalls)
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, enum.PaymentStatusCancelled, stored.PaymentStatus)
	assert.Equal(t, enum.OrderStatusCancelled, stored.Status)
}

func TestCancel_PaidOrderRejected(t *testing.T) {
	order := pendingOrder(10000)
	order.PaymentStatus = enum.PaymentStatusPaid
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	err := svc.Cancel(context.Background(), order.ID)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Code)
	assert.Equal(t, 0, gateway.cancelInvoiceCalls)
}

func TestCancel_AlreadyCancelledIsNoOp(t *testing.T) {
	order := pendingOrder(10000)
	order.PaymentStatus = enum.PaymentStatusCancelled
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	assert.NoError(t, svc.Cancel(context.Background(), order.ID))
	assert.Equal(t, 0, gateway.cancelInvoiceCalls)
}

func TestRefund_ReversesSettledPayment(t *testing.T) {
	order := pendingOrder(10000)
	paymentID := "pay-1"
	paidAt := time.Now().AddDate(0, 0, -3)
	order.PaymentStatus = enum.PaymentStatusPaid
	order.Status = enum.OrderStatusPaid
	order.QPayPaymentID = &paymentID
	order.PaidAt = &paidAt
	gateway := &fakeGateway{}
	svc, orderRepo := newPaymentFixture(order, gateway)

	require.NoError(t, svc.Refund(context.Background(), order.ID))

	assert.Equal(t, 1, gateway.refundCalls)
	assert.Equal(t, 0, gateway.cancelPaymentCalls)
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, enum.PaymentStatusRefunded, stored.PaymentStatus)
	assert.Equal(t, enum.OrderStatusRefunded, stored.Status)
}

func TestRefund_SameDayPaymentIsVoided(t *testing.T) {
	order := pendingOrder(10000)
	paymentID := "pay-1"
	paidAt := time.Now()
	order.PaymentStatus = enum.PaymentStatusPaid
	order.Status = enum.OrderStatusPaid
	order.QPayPaymentID = &paymentID
	order.PaidAt = &paidAt
	gateway := &fakeGateway{}
	svc, orderRepo := newPaymentFixture(order, gateway)

	require.NoError(t, svc.Refund(context.Background(), order.ID))

	assert.Equal(t, 1, gateway.cancelPaymentCalls)
	assert.Equal(t, 0, gateway.refundCalls)
	stored, _ := orderRepo.GetByID(context.Background(), order.ID)
	assert.Equal(t, enum.PaymentStatusRefunded, stored.PaymentStatus)
}

func TestRefund_PendingOrderRejected(t *testing.T) {
	order := pendingOrder(10000)
	gateway := &fakeGateway{}
	svc, _ := newPaymentFixture(order, gateway)

	err := svc.Refund(context.Background(), order.ID)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Code)
	assert.Equal(t, 0, gateway.refundCalls)
}
