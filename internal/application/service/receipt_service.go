package service

import (
	"context"
	"log"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/google/uuid"
)

// ReceiptService issues the government tax receipt (ebarimt) for settled
// payments. A receipt is issued at most once per order and only for itemized
// orders; amount-only orders never get one. Receipt failures are reported to
// the caller but must never unwind the payment itself.
type ReceiptService struct {
	orderRepo   repository.OrderRepository
	receiptRepo repository.ReceiptRepository
	gateway     PaymentGateway
	cfg         *config.QPayConfig
}

func NewReceiptService(orderRepo repository.OrderRepository, receiptRepo repository.ReceiptRepository, gateway PaymentGateway, cfg *config.QPayConfig) *ReceiptService {
	return &ReceiptService{
		orderRepo:   orderRepo,
		receiptRepo: receiptRepo,
		gateway:     gateway,
		cfg:         cfg,
	}
}

// IssueForOrder requests a tax receipt for a settled order. The order must
// carry its lines and (when set) its customer. Non-itemized orders and orders
// that already have a receipt are skipped silently.
func (s *ReceiptService) IssueForOrder(ctx context.Context, order *entity.Order) error {
	if !order.Itemized() {
		return nil
	}
	if order.EbarimtID != nil {
		return nil
	}
	if order.QPayPaymentID == nil {
		return apperror.NewAppError(422, "Order has no settled payment to issue a receipt for")
	}

	existing, err := s.receiptRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return apperror.ErrInternalServer
	}
	if existing != nil {
		return nil
	}

	req := &qpay.EbarimtRequest{
		PaymentID:    *order.QPayPaymentID,
		ReceiverType: "CITIZEN",
	}
	if order.Customer != nil && order.Customer.RegisterNo != nil {
		req.Receiver = *order.Customer.RegisterNo
	}

	// Reuse the token cached at invoice creation when it still has enough
	// validity left; otherwise the client fetches a fresh one.
	if order.TokenReusable(s.cfg.ReceiptTokenMargin) {
		req.Token = *order.QPayToken
	}

	resp, err := s.gateway.CreateEbarimt(ctx, req)
	if err != nil {
		return err
	}

	receipt := &entity.EbarimtReceipt{
		OrderID:       order.ID,
		EbarimtID:     resp.ID,
		QPayPaymentID: *order.QPayPaymentID,
		ReceiverType:  req.ReceiverType,
		Status:        resp.Status,
		Amount:        int64(resp.Amount * 100),
		VATAmount:     int64(resp.VATAmount * 100),
		CityTaxAmount: int64(resp.CityTaxAmount * 100),
	}
	if req.Receiver != "" {
		receipt.Receiver = &req.Receiver
	}
	if resp.QRData != "" {
		receipt.QRData = &resp.QRData
	}
	if resp.Lottery != "" {
		receipt.Lottery = &resp.Lottery
	}

	// The gateway returns the QR data and lottery code only on this call, so
	// persistence failures here lose them for good.
	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		log.Printf("RECEIPT PERSIST FAILED: order %s ebarimt %s: %v", order.ID, resp.ID, err)
		return apperror.ErrInternalServer
	}
	if err := s.orderRepo.SetEbarimtID(ctx, order.ID, resp.ID); err != nil {
		log.Printf("RECEIPT LINK FAILED: order %s ebarimt %s: %v", order.ID, resp.ID, err)
		return apperror.ErrInternalServer
	}

	order.EbarimtID = &resp.ID
	return nil
}

// GetByOrderID returns the stored receipt for an order.
func (s *ReceiptService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.EbarimtReceipt, error) {
	receipt, err := s.receiptRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	return receipt, nil
}
