package rabbit

import (
	"context"
	"encoding/json"
	"log"

	"order-fulfillment-service/internal/service"
)

// OrderEventsConsumer es el despachador de efectos best-effort: consume los
// eventos de transición y dispara notificación al cliente e invalidación de
// cache. Sus fallos se loguean y nada más; el estado ya está commiteado.
type OrderEventsConsumer struct {
	Notifier *service.NotificationService
	Cache    *service.CacheService
}

func NewOrderEventsConsumer(n *service.NotificationService, c *service.CacheService) *OrderEventsConsumer {
	return &OrderEventsConsumer{Notifier: n, Cache: c}
}

func (c *OrderEventsConsumer) Handle(msg []byte) {
	var ev service.OrderEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		log.Println("Error parseando evento de orden:", err)
		return
	}

	ctx := context.Background()

	if err := c.Notifier.Notify(ctx, ev.CustomerID, ev.OrderID, ev.OrderNumber, ev.Status); err != nil {
		log.Println("❌ Error notificando al cliente:", ev.OrderID, err)
	}

	if ev.InvalidateCache {
		if err := c.Cache.Invalidate(ctx, ev.OrderID, ev.CustomerID); err != nil {
			log.Println("❌ Error invalidando cache:", ev.OrderID, err)
		}
	}
}
