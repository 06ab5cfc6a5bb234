package service

import (
	"context"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/google/uuid"
)

// PaymentService answers payment status queries and runs the admin-facing
// cancel and refund flows. Status queries are throttled twice: a short-TTL
// per-order cache and a per-invoice minimum check interval keep aggressive
// frontend polling from hammering the gateway.
type PaymentService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	reconcile *ReconcileService
	cache     *StatusCache
	limiter   *CheckLimiter
}

func NewPaymentService(orderRepo repository.OrderRepository, gateway PaymentGateway, reconcile *ReconcileService, cache *StatusCache, limiter *CheckLimiter) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		gateway:   gateway,
		reconcile: reconcile,
		cache:     cache,
		limiter:   limiter,
	}
}

// GetStatus returns the order's payment status, verifying against the
// gateway when neither the cache nor the check limiter holds it back. A PAID
// order always returns immediately without a gateway call.
func (s *PaymentService) GetStatus(ctx context.Context, orderID uuid.UUID) (*PaymentStatusView, error) {
	if view, ok := s.cache.Get(orderID); ok {
		view.Cached = true
		return &view, nil
	}

	order, err := s.orderRepo.GetWithLines(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}

	if order.PaymentStatus != enum.PaymentStatusPending {
		view := persistedView(order, true)
		return &view, nil
	}

	if order.QPayInvoiceID == nil {
		view := persistedView(order, true)
		view.ShouldStopPolling = false
		return &view, nil
	}

	if !s.limiter.Allow(*order.QPayInvoiceID) {
		view := persistedView(order, false)
		view.RateLimited = true
		return &view, nil
	}

	status, verified, err := s.reconcile.Reconcile(ctx, order)
	if err != nil {
		return nil, err
	}

	view := PaymentStatusView{
		OrderID:           order.ID,
		OrderNo:           order.OrderNo,
		PaymentStatus:     status,
		PaymentMethod:     order.PaymentMethod,
		PaidAt:            order.PaidAt,
		Verified:          verified,
		ShouldStopPolling: status.Terminal(),
	}
	s.cache.Set(orderID, view)
	return &view, nil
}

// Cancel voids the gateway invoice (if any) and marks the order cancelled.
// Paid orders cannot be cancelled; they go through Refund.
func (s *PaymentService) Cancel(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return apperror.ErrInternalServer
	}
	if order == nil {
		return apperror.NewNotFoundError("Order")
	}
	if order.PaymentStatus == enum.PaymentStatusCancelled {
		return nil
	}
	if order.PaymentStatus != enum.PaymentStatusPending {
		return apperror.NewAppError(422, "Only pending orders can be cancelled")
	}

	if order.QPayInvoiceID != nil {
		if err := s.gateway.CancelInvoice(ctx, *order.QPayInvoiceID); err != nil {
			return err
		}
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, enum.PaymentStatusCancelled, enum.OrderStatusCancelled); err != nil {
		return apperror.ErrInternalServer
	}
	s.cache.Invalidate(orderID)
	return nil
}

// Refund reverses a settled payment through the gateway and marks the order
// refunded. A payment settled earlier the same day is voided through the
// cancel endpoint before it enters settlement; older payments go through the
// refund endpoint.
func (s *PaymentService) Refund(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return apperror.ErrInternalServer
	}
	if order == nil {
		return apperror.NewNotFoundError("Order")
	}
	if order.PaymentStatus != enum.PaymentStatusPaid || order.QPayPaymentID == nil {
		return apperror.NewAppError(422, "Only paid orders can be refunded")
	}

	reverse := s.gateway.RefundPayment
	if order.PaidAt != nil && sameDay(*order.PaidAt, time.Now()) {
		reverse = s.gateway.CancelPayment
	}
	if err := reverse(ctx, *order.QPayPaymentID); err != nil {
		return err
	}

	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, enum.PaymentStatusRefunded, enum.OrderStatusRefunded); err != nil {
		return apperror.ErrInternalServer
	}
	s.cache.Invalidate(orderID)
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func persistedView(order *entity.Order, verified bool) PaymentStatusView {
	return PaymentStatusView{
		OrderID:           order.ID,
		OrderNo:           order.OrderNo,
		PaymentStatus:     order.PaymentStatus,
		PaymentMethod:     order.PaymentMethod,
		PaidAt:            order.PaidAt,
		Verified:          verified,
		ShouldStopPolling: order.PaymentStatus.Terminal(),
	}
}
