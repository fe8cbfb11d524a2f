// setup.go
package rabbit

import (
	"log"

	"order-fulfillment-service/internal/service"

	"github.com/rabbitmq/amqp091-go"
)

// SetupConsumers arma las dos colas del servicio:
//   - order_placed (checkout externo) → crea el documento de fulfillment
//   - order_events (este mismo servicio) → notificación + invalidación de cache
func SetupConsumers(ch *amqp091.Channel, svc *service.FulfillmentService, notifier *service.NotificationService, cache *service.CacheService) {
	placeOrder := NewPlaceOrderConsumer(svc)
	events := NewOrderEventsConsumer(notifier, cache)

	consume(ch, "order_fulfillment_orders", "order_placed", func(body []byte) {
		placeOrder.Handle(body)
	})
	consume(ch, "order_fulfillment_side_effects", orderEventsExchange, func(body []byte) {
		events.Handle(body)
	})
}

func consume(ch *amqp091.Channel, queue, exchange string, handle func([]byte)) {
	// 1. Declarar exchange y queue
	err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil)
	if err != nil {
		log.Println("❌ Error declarando exchange:", exchange, err)
		return
	}

	q, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("❌ Error declarando queue:", queue, err)
		return
	}

	// 2. Bindear al exchange fanout
	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		exchange,
		false,
		nil,
	)
	if err != nil {
		log.Println("❌ Error binding exchange:", exchange, err)
		return
	}

	// 3. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("❌ Error al consumir queue:", queue, err)
		return
	}

	go func() {
		for m := range msgs {
			handle(m.Body)
		}
	}()

	log.Printf("🐰 Suscrito a exchange %s (fanout)", exchange)
}
