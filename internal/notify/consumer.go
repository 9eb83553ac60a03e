package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"tailor-be/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, msg Message) error

// Consume reads the queue until ctx is cancelled or the broker closes the channel.
func Consume(ctx context.Context, url, queue string, h Handler) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueue(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("rabbitmq: qos failed: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "tailor-mailer", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: consume failed: %w", err)
	}

	logger.L().Info("mail consumer started", zap.String("queue", queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("rabbitmq: delivery channel closed")
			}
			handleDelivery(ctx, d, h)
		}
	}
}

// handleDelivery acks on success, drops undecodable bodies and retries a failed
// message once before dropping it.
func handleDelivery(ctx context.Context, d amqp.Delivery, h Handler) {
	log := logger.FromCtx(ctx).With(zap.Uint64("delivery_tag", d.DeliveryTag))

	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Error("dropping undecodable message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := h(ctx, msg); err != nil {
		log.Error("notification handler failed",
			zap.String("kind", string(msg.Kind)),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	_ = d.Ack(false)
}
