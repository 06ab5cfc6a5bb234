package request

import "github.com/google/uuid"

// CreateOrderRequest represents an order creation request
type CreateOrderRequest struct {
	CustomerID      *uuid.UUID         `json:"customer_id"`
	DeliveryAddress *string            `json:"delivery_address"`
	DeliveryPhone   *string            `json:"delivery_phone"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemRequest is one requested product and quantity
type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}
