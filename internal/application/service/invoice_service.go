package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/badrakh/monshop-api/internal/config"
	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/badrakh/monshop-api/pkg/qr"
	"github.com/google/uuid"
)

// InvoiceView is what invoice creation returns to the client. Cached is true
// when the order already carried an invoice and no gateway call was made.
type InvoiceView struct {
	OrderID   uuid.UUID       `json:"order_id"`
	OrderNo   string          `json:"order_no"`
	InvoiceID string          `json:"invoice_id"`
	QRText    string          `json:"qr_text"`
	QRImage   string          `json:"qr_image"`
	Deeplinks []qpay.Deeplink `json:"urls,omitempty"`
	Amount    float64         `json:"amount"`
	Cached    bool            `json:"cached"`
}

// InvoiceService coordinates gateway invoice creation. It guarantees at most
// one invoice per order: concurrent requests are rejected while one is in
// flight, completed orders return the stored invoice without a gateway call,
// and a guarded database update backstops both in case another process won
// the race.
type InvoiceService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	cfg       *config.QPayConfig
	inflight  *inflightSet
}

func NewInvoiceService(orderRepo repository.OrderRepository, gateway PaymentGateway, cfg *config.QPayConfig) *InvoiceService {
	return &InvoiceService{
		orderRepo: orderRepo,
		gateway:   gateway,
		cfg:       cfg,
		inflight:  newInflightSet(),
	}
}

// CreateInvoice creates (or returns) the gateway invoice for an order.
// itemized nil means itemize whenever the order has line items; explicitly
// requesting an itemized invoice for a line-less order is an error.
func (s *InvoiceService) CreateInvoice(ctx context.Context, orderID uuid.UUID, itemized *bool) (*InvoiceView, error) {
	if !s.inflight.tryAcquire(orderID) {
		return nil, apperror.ErrConcurrentRequest
	}
	defer s.inflight.release(orderID)

	order, err := s.orderRepo.GetWithLines(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}

	if !order.Payable() {
		return nil, apperror.ErrOrderNotPayable
	}

	// A pending order that already carries an invoice returns the stored
	// one; clients re-requesting the QR never trigger a second gateway call.
	if order.QPayInvoiceID != nil {
		return s.storedInvoiceView(order)
	}

	wantItemized := order.Itemized()
	if itemized != nil {
		wantItemized = *itemized
	}
	if wantItemized && !order.Itemized() {
		return nil, apperror.ErrInsufficientLineData
	}

	req := &qpay.InvoiceRequest{
		SenderInvoiceNo:     order.OrderNo,
		InvoiceReceiverCode: "terminal",
		InvoiceDescription:  fmt.Sprintf("Order %s", order.OrderNo),
		Amount:              float64(order.Total) / 100,
		CallbackURL:         fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.CallbackURL, "/"), order.ID),
	}
	if wantItemized {
		req.Lines = buildInvoiceLines(order)
	}

	resp, err := s.gateway.CreateInvoice(ctx, req)
	if err != nil {
		return nil, err
	}

	fields := &repository.InvoiceFields{
		InvoiceID: resp.InvoiceID,
		QRText:    resp.QRText,
	}
	if resp.QRImage != "" {
		fields.QRImage = &resp.QRImage
	}
	if token, expires, ok := s.gateway.ActiveToken(); ok {
		fields.Token = token
		fields.TokenExpires = expires
	}

	stored, err := s.orderRepo.SetInvoice(ctx, order.ID, fields)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if !stored {
		// Another writer attached an invoice between our read and this
		// update. The gateway invoice we just created is now orphaned.
		log.Printf("DUPLICATE INVOICE: order %s already had invoice attached, orphaned gateway invoice %s", order.ID, resp.InvoiceID)
		return nil, apperror.ErrDuplicateInvoice
	}

	view := &InvoiceView{
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		InvoiceID: resp.InvoiceID,
		QRText:    resp.QRText,
		QRImage:   resp.QRImage,
		Deeplinks: resp.Deeplinks,
		Amount:    float64(order.Total) / 100,
	}
	if view.QRImage == "" {
		view.QRImage, _ = qr.PNGBase64(resp.QRText)
	}
	return view, nil
}

// storedInvoiceView rebuilds the invoice view from the persisted fields,
// regenerating the QR image when only the QR payload was stored.
func (s *InvoiceService) storedInvoiceView(order *entity.Order) (*InvoiceView, error) {
	view := &InvoiceView{
		OrderID:   order.ID,
		OrderNo:   order.OrderNo,
		InvoiceID: *order.QPayInvoiceID,
		Amount:    float64(order.Total) / 100,
		Cached:    true,
	}
	if order.QPayQRText != nil {
		view.QRText = *order.QPayQRText
	}
	if order.QPayQRImage != nil {
		view.QRImage = *order.QPayQRImage
	} else if view.QRText != "" {
		img, err := qr.PNGBase64(view.QRText)
		if err != nil {
			return nil, apperror.ErrInternalServer
		}
		view.QRImage = img
	}
	return view, nil
}

// buildInvoiceLines maps order lines to gateway invoice lines. Per-line VAT
// computed from the product's tax classification is preferred; lines without
// one fall back to a share of the order VAT proportional to the line total.
func buildInvoiceLines(order *entity.Order) []qpay.InvoiceLine {
	lines := make([]qpay.InvoiceLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		vat := line.VATAmount
		if vat == 0 && order.VAT > 0 && order.SubTotal > 0 {
			vat = order.VAT * line.Total / order.SubTotal
		}

		invLine := qpay.InvoiceLine{
			LineDescription: line.Name,
			LineQuantity:    float64(line.Quantity),
			LineUnitPrice:   float64(line.UnitPrice) / 100,
		}
		if vat > 0 {
			invLine.Taxes = []qpay.InvoiceTax{{TaxCode: "VAT", Amount: float64(vat) / 100}}
		}
		lines = append(lines, invLine)
	}
	return lines
}
