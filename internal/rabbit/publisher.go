// publisher.go
package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"order-fulfillment-service/internal/service"

	"github.com/rabbitmq/amqp091-go"
)

const orderEventsExchange = "order_events"

// Publisher emite los eventos de dominio tras cada transición confirmada.
// Implementa service.EventPublisher.
type Publisher struct {
	ch *amqp091.Channel
}

func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		orderEventsExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) OrderStatusChanged(ev service.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		orderEventsExchange,
		"", // fanout ignora routing key
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
}
