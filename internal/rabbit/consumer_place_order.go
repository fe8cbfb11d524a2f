package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"order-fulfillment-service/internal/dto"
	"order-fulfillment-service/internal/service"
)

// PlaceOrderConsumer crea el documento de fulfillment cuando el checkout
// (externo) publica una orden comprada en el exchange order_placed.
type PlaceOrderConsumer struct {
	Service *service.FulfillmentService
}

func NewPlaceOrderConsumer(s *service.FulfillmentService) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{Service: s}
}

type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID     string `json:"orderId"`
		OrderNumber string `json:"orderNumber"`
		CustomerID  string `json:"customerId"`
		Articles    []struct {
			ArticleID string `json:"articleId"`
			Quantity  int    `json:"quantity"`
		} `json:"articles"`
		TotalPrice    float64 `json:"totalPrice"`
		Currency      string  `json:"currency"`
		PaymentMethod string  `json:"paymentMethod"`
		// Si el checkout no manda shipping queda el Zero Value y el
		// servicio usa la dirección por defecto.
		Shipping dto.ShippingDTO `json:"shipping"`
	} `json:"message"`
}

func (c *PlaceOrderConsumer) Handle(msg []byte) error {
	log.Println("[Rabbit] Evento recibido: place_order")

	var event PlacedOrderMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Println("Error parseando mensaje:", err)
		return err
	}

	req := dto.InitOrderRequest{
		OrderID:       event.Message.OrderID,
		OrderNumber:   event.Message.OrderNumber,
		CustomerID:    event.Message.CustomerID,
		TotalPrice:    event.Message.TotalPrice,
		Currency:      event.Message.Currency,
		PaymentMethod: event.Message.PaymentMethod,
		Shipping:      event.Message.Shipping,
	}
	for _, a := range event.Message.Articles {
		req.Items = append(req.Items, dto.LineItemDTO{ProductID: a.ArticleID, Quantity: a.Quantity})
	}

	_, err := c.Service.InitOrder(context.Background(), req)
	if errors.Is(err, service.ErrOrderAlreadyExists) {
		// Redelivery: la orden ya está, no es un error
		log.Println("Orden ya inicializada, se ignora:", event.Message.OrderID)
		return nil
	}
	if err != nil {
		log.Println("❌ Error creando orden de fulfillment:", err)
		return err
	}

	log.Println("✔ Orden de fulfillment creada:", event.Message.OrderID)
	return nil
}
