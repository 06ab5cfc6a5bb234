package request

// CreateInvoiceRequest represents a payment invoice creation request.
// Itemized left unset means the invoice is itemized whenever the order has
// line items.
type CreateInvoiceRequest struct {
	Itemized *bool `json:"itemized"`
}
