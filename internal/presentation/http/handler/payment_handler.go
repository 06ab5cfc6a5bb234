package handler

import (
	"errors"
	"io"
	"log"

	"github.com/badrakh/monshop-api/internal/application/service"
	"github.com/badrakh/monshop-api/internal/infrastructure/qpay"
	"github.com/badrakh/monshop-api/internal/presentation/http/dto/request"
	"github.com/badrakh/monshop-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment-related HTTP requests: invoice creation,
// the gateway callback, status polling, cancellation and refunds.
type PaymentHandler struct {
	invoiceService   *service.InvoiceService
	paymentService   *service.PaymentService
	reconcileService *service.ReconcileService
	receiptService   *service.ReceiptService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(invoiceService *service.InvoiceService, paymentService *service.PaymentService, reconcileService *service.ReconcileService, receiptService *service.ReceiptService) *PaymentHandler {
	return &PaymentHandler{
		invoiceService:   invoiceService,
		paymentService:   paymentService,
		reconcileService: reconcileService,
		receiptService:   receiptService,
	}
}

// CreateInvoice handles payment invoice creation for an order
func (h *PaymentHandler) CreateInvoice(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	// Body is optional; an empty body means default itemization.
	var req request.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request body")
		return
	}

	view, err := h.invoiceService.CreateInvoice(c.Request.Context(), orderID, req.Itemized)
	if err != nil {
		response.Error(c, err)
		return
	}

	if view.Cached {
		response.OK(c, "Invoice retrieved successfully", view)
		return
	}
	response.Created(c, "Invoice created successfully", view)
}

// Callback handles the gateway payment notification. It always responds
// SUCCESS for known orders so the gateway marks the callback as delivered;
// the claimed status is re-verified before any state change.
func (h *PaymentHandler) Callback(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.String(400, "INVALID")
		return
	}

	// POST callbacks carry a payload; its claimed status is logged for
	// traceability and otherwise ignored.
	var payload qpay.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err == nil && payload.Status != "" {
		log.Printf("payment callback for order %s claims status %q", orderID, payload.Status)
	}

	if err := h.reconcileService.HandleCallback(c.Request.Context(), orderID); err != nil {
		response.Error(c, err)
		return
	}

	c.String(200, "SUCCESS")
}

// GetStatus handles payment status polling for an order
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	view, err := h.paymentService.GetStatus(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment status retrieved", view)
}

// Cancel handles voiding the pending payment for an order
func (h *PaymentHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	if err := h.paymentService.Cancel(c.Request.Context(), orderID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Refund handles refunding a settled payment
func (h *PaymentHandler) Refund(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	if err := h.paymentService.Refund(c.Request.Context(), orderID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// GetReceipt handles fetching the tax receipt for an order
func (h *PaymentHandler) GetReceipt(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	receipt, err := h.receiptService.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved", receipt)
}
