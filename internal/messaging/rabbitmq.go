package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const eventsExchange = "chat.events"

// RabbitMQ wraps the broker connection used for cross-node event fan-out.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQ dials the broker and declares the events exchange plus this
// node's private queue.
func NewRabbitMQ(url, nodeID string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{conn: conn, channel: ch}
	if err := rmq.setup(nodeID); err != nil {
		rmq.Close()
		return nil, err
	}
	return rmq, nil
}

// NewRabbitMQWithRetry dials the broker with exponential backoff until ctx
// expires. Useful at startup when the broker container may still be
// coming up.
func NewRabbitMQWithRetry(ctx context.Context, url, nodeID string) (*RabbitMQ, error) {
	backoff := time.Second
	for {
		rmq, err := NewRabbitMQ(url, nodeID)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq connection failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up connecting to RabbitMQ: %w", err)
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (r *RabbitMQ) setup(nodeID string) error {
	if err := r.channel.ExchangeDeclare(
		eventsExchange, // name
		"fanout",       // type
		false,          // durable: events are ephemeral
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	// One private queue per node; every node sees every room event.
	q, err := r.channel.QueueDeclare(
		"chat.events."+nodeID, // name
		false,                 // durable
		true,                  // delete when unused
		true,                  // exclusive
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare node queue: %w", err)
	}

	if err := r.channel.QueueBind(q.Name, "", eventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind node queue: %w", err)
	}
	r.queue = q.Name

	slog.Info("rabbitmq setup completed", slog.String("queue", q.Name))
	return nil
}

// PublishEnvelope publishes one event envelope to the fanout exchange.
func (r *RabbitMQ) PublishEnvelope(ctx context.Context, env *EventEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		eventsExchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event envelope: %w", err)
	}
	return nil
}

// Consume starts delivering envelopes published by peer nodes.
func (r *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := r.channel.Consume(
		r.queue,
		"",    // consumer tag
		true,  // auto-ack: missed fan-out is acceptable
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

// IsClosed reports whether the broker connection is gone.
func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

// Close tears down the channel and connection.
func (r *RabbitMQ) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
