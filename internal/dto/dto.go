// dto.go
package dto

import "time"

// InitOrderRequest inicializa el documento de fulfillment de una orden.
// Lo usan la API (pruebas) y el consumer de Rabbit (flujo real de checkout).
type InitOrderRequest struct {
	OrderID       string        `json:"orderId" binding:"required"`
	OrderNumber   string        `json:"orderNumber"`
	CustomerID    string        `json:"customerId" binding:"required"`
	Items         []LineItemDTO `json:"items"`
	TotalPrice    float64       `json:"totalPrice"`
	Currency      string        `json:"currency"`
	PaymentMethod string        `json:"paymentMethod"`
	Shipping      ShippingDTO   `json:"shipping"`
}

type LineItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ShippingDTO para la dirección y comentario
type ShippingDTO struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Province     string `json:"province"`
	Country      string `json:"country"`
	Comments     string `json:"comments"`
}

type UpdateAddressRequest struct {
	Shipping ShippingDTO `json:"shipping" binding:"required"`
}

type PackRequest struct {
	Notes string `json:"notes"`
}

type AssignDeliverymanRequest struct {
	DeliverymanID string `json:"deliverymanId" binding:"required"`
}

type CollectCashRequest struct {
	// Si viene en cero se usa el total de la orden.
	Amount float64 `json:"amount"`
}

type RescheduleRequest struct {
	Date   time.Time `json:"date" binding:"required"`
	Reason string    `json:"reason" binding:"required"`
}

type FailDeliveryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type SubmitCashRequest struct {
	AccountsEmployeeID string `json:"accountsEmployeeId" binding:"required"`
}

type RejectCashRequest struct {
	Reason string `json:"reason"`
}

// ActionResponse es la respuesta uniforme de toda operación mutante.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
