package service

import (
	"context"
	"log"
	"time"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/enum"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/pkg/apperror"
	emailpkg "github.com/badrakh/monshop-api/pkg/email"
	"github.com/google/uuid"
)

// ReconcileService converges an order's persisted payment state with the
// gateway's view. Both the callback path and the polling path funnel into the
// same verification: fetch the payment rows for the invoice, look for a
// settled one, and apply the PAID transition exactly once. PAID is absorbing;
// once applied nothing moves the order back.
type ReconcileService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	receipts  *ReceiptService
	cache     *StatusCache
	mailer    Mailer
}

func NewReconcileService(orderRepo repository.OrderRepository, gateway PaymentGateway, receipts *ReceiptService, cache *StatusCache, mailer Mailer) *ReconcileService {
	return &ReconcileService{
		orderRepo: orderRepo,
		gateway:   gateway,
		receipts:  receipts,
		cache:     cache,
		mailer:    mailer,
	}
}

// HandleCallback processes a gateway payment notification. The callback's
// own payload is never trusted; the payment is re-verified through the
// payment-check endpoint. Gateway failures are swallowed so the gateway
// records the callback as delivered; polling will converge the state later.
func (s *ReconcileService) HandleCallback(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.GetWithLines(ctx, orderID)
	if err != nil {
		return apperror.ErrInternalServer
	}
	if order == nil {
		return apperror.NewNotFoundError("Order")
	}
	if order.QPayInvoiceID == nil {
		log.Printf("callback for order %s with no invoice, ignoring", orderID)
		return nil
	}

	if _, _, err := s.Reconcile(ctx, order); err != nil {
		log.Printf("callback reconciliation for order %s failed: %v", orderID, err)
	}
	return nil
}

// Reconcile verifies the order's payment against the gateway and applies the
// PAID transition when a settled payment is found. It returns the resulting
// status and whether that status was actually verified with the gateway; on
// gateway failure it degrades to the persisted status with verified false
// rather than failing the caller.
func (s *ReconcileService) Reconcile(ctx context.Context, order *entity.Order) (enum.PaymentStatus, bool, error) {
	if order.PaymentStatus != enum.PaymentStatusPending {
		return order.PaymentStatus, true, nil
	}
	if order.QPayInvoiceID == nil {
		return order.PaymentStatus, true, nil
	}

	records, err := s.gateway.CheckPayment(ctx, *order.QPayInvoiceID)
	if err != nil {
		log.Printf("payment check for invoice %s failed: %v", *order.QPayInvoiceID, err)
		return order.PaymentStatus, false, nil
	}

	var settled *repository.PaidFields
	for _, rec := range records {
		if !rec.Settled() {
			continue
		}
		paidAt := rec.Date
		if paidAt.IsZero() {
			paidAt = time.Now()
		}
		settled = &repository.PaidFields{
			PaymentID:     rec.ID,
			PaymentMethod: rec.Method,
			PaidAt:        paidAt,
		}
		break
	}
	if settled == nil {
		return order.PaymentStatus, true, nil
	}

	transitioned, err := s.orderRepo.MarkPaid(ctx, order.ID, settled)
	if err != nil {
		return order.PaymentStatus, false, apperror.ErrInternalServer
	}

	order.PaymentStatus = enum.PaymentStatusPaid
	order.Status = enum.OrderStatusPaid
	order.QPayPaymentID = &settled.PaymentID
	order.PaymentMethod = &settled.PaymentMethod
	order.PaidAt = &settled.PaidAt
	s.cache.Invalidate(order.ID)

	// Side effects run only for the writer that actually applied the
	// transition, so a callback and a poll racing each other produce one
	// receipt and one email.
	if transitioned {
		if err := s.receipts.IssueForOrder(ctx, order); err != nil {
			log.Printf("receipt issuance for order %s failed: %v", order.ID, err)
		}
		s.notifyPaid(order)
	}

	return enum.PaymentStatusPaid, true, nil
}

func (s *ReconcileService) notifyPaid(order *entity.Order) {
	if s.mailer == nil || order.Customer == nil || order.Customer.Email == nil {
		return
	}

	to := *order.Customer.Email
	data := emailpkg.PaymentConfirmation{
		OrderNo: order.OrderNo,
		Total:   float64(order.Total) / 100,
	}
	if order.PaymentMethod != nil {
		data.PaymentMethod = *order.PaymentMethod
	}
	if order.PaidAt != nil {
		data.PaidAt = order.PaidAt.Format("2006-01-02 15:04")
	}

	go func() {
		if err := s.mailer.SendPaymentConfirmedEmail(to, data); err != nil {
			log.Printf("payment confirmation email for order %s failed: %v", order.OrderNo, err)
		}
	}()
}
