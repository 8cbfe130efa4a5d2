// Package queue_publisher publishes domain events to RabbitMQ. Errors
// are logged and returned so callers on the request path can ignore them
// without interrupting the write that triggered the event.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/kisara-app/kisara-api/internal/queue"
)

// Publisher emits events for the notification consumer. The zero-cost
// dial-per-publish keeps the request path free of broker connection
// state; message volume here is a handful per second at most.
type Publisher struct{}

func New() *Publisher { return &Publisher{} }

// PublishMessageReceived publishes a MessageReceivedEvent to the
// message.received queue. Messages are marked persistent so they survive
// a broker restart; any failure is logged and returned for the caller to
// drop.
func (p *Publisher) PublishMessageReceived(ctx context.Context, event q.MessageReceivedEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(q.MessageReceivedQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.MessageReceivedQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
