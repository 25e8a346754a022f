package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/queue"
	"notifyd/internal/telemetry"
)

var errNotConfirmed = errors.New("rabbitmq publish not confirmed")

type noopPublisher struct{}

func (n *noopPublisher) Publish(context.Context, []byte, string) error {
	return nil
}

// Publisher relays pushed notifications to a topic exchange for other local
// consumers. Each publish waits for the broker confirm.
type Publisher struct {
	url      string
	logger   *zap.Logger
	exchange string
}

func NewPublisher(cfg *config.Config, logger *zap.Logger) queue.Publisher {
	if cfg.RabbitMQURL == "" {
		return &noopPublisher{}
	}
	return &Publisher{url: cfg.RabbitMQURL, logger: logger, exchange: cfg.RabbitExchange}
}

func (p *Publisher) Publish(ctx context.Context, payload []byte, routingKey string) error {
	ctx, span := telemetry.Tracer("rabbitmq").Start(ctx, "rabbitmq.relay")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", p.exchange),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.Int("messaging.message_payload_size_bytes", len(payload)),
	)
	defer span.End()

	err := p.publish(ctx, payload, routingKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "relay failed")
		p.logger.Error("rabbitmq publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, payload []byte, routingKey string) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaderCarrier(headers))

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Type:         "notification",
			Headers:      headers,
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("rabbitmq confirm: %w", err)
	}
	if !acked {
		return errNotConfirmed
	}
	return nil
}
