package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/domain"
	"notifyd/internal/protocol"
	"notifyd/internal/queue"
	"notifyd/internal/telemetry"
)

// Commands is what remote command messages are forwarded to.
type Commands interface {
	Refresh(ctx context.Context, limit int) error
	MarkRead(ctx context.Context, id int64) error
}

type noopConsumer struct{}

func (n *noopConsumer) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Consumer reads get_recent/mark_read commands that other local processes
// put on the queue and forwards them to the notification channel.
type Consumer struct {
	url         string
	commands    Commands
	logger      *zap.Logger
	exchange    string
	queue       string
	routingKey  string
	consumerTag string
}

func NewConsumer(cfg *config.Config, commands Commands, logger *zap.Logger) queue.Consumer {
	if cfg.RabbitMQURL == "" {
		return &noopConsumer{}
	}
	return &Consumer{
		url:         cfg.RabbitMQURL,
		commands:    commands,
		logger:      logger,
		exchange:    cfg.RabbitExchange,
		queue:       cfg.RabbitQueue,
		routingKey:  cfg.RabbitRoutingKey,
		consumerTag: cfg.RabbitConsumerTag,
	}
}

func (r *Consumer) Start(ctx context.Context) error {
	ctx, span := telemetry.Tracer("rabbitmq").Start(ctx, "rabbitmq.consume_loop")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", r.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", r.routingKey),
	)
	defer span.End()

	conn, err := amqp.Dial(r.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel failed")
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "qos failed")
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	if err := ch.ExchangeDeclare(
		r.exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange declare failed")
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	queueInfo, err := ch.QueueDeclare(
		r.queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "queue declare failed")
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.QueueBind(
		queueInfo.Name,
		r.routingKey,
		r.exchange,
		false,
		nil,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "queue bind failed")
		return fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	deliveries, err := ch.Consume(
		queueInfo.Name,
		r.consumerTag,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "consume failed")
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	r.logger.Info("RabbitMQ command consumer started",
		zap.String("exchange", r.exchange),
		zap.String("queue", queueInfo.Name),
		zap.String("routing_key", r.routingKey),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-deliveries:
			if !ok {
				span.SetStatus(codes.Error, "deliveries closed")
				return errors.New("rabbitmq deliveries closed")
			}
			if err := r.handleMessage(ctx, msg); err != nil {
				span.RecordError(err)
				return err
			}
		}
	}
}

func (r *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, amqpHeaderCarrier(msg.Headers))
	ctx, span := telemetry.Tracer("rabbitmq").Start(ctx, "rabbitmq.handle_command")
	span.SetAttributes(
		attribute.String("messaging.system", "rabbitmq"),
		attribute.String("messaging.destination", r.exchange),
		attribute.String("messaging.destination_kind", "exchange"),
		attribute.String("messaging.rabbitmq.routing_key", msg.RoutingKey),
	)
	defer span.End()

	var cmd protocol.Command
	if err := json.Unmarshal(msg.Body, &cmd); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid json")
		r.logger.Error("rabbitmq invalid json", zap.Error(err))
		return msg.Ack(false)
	}
	span.SetAttributes(attribute.String("notifyd.action", cmd.Action))

	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var err error
	switch cmd.Action {
	case protocol.ActionGetRecent:
		err = r.commands.Refresh(sendCtx, cmd.Limit)
	case protocol.ActionMarkRead:
		if cmd.NotificationID <= 0 {
			span.SetStatus(codes.Error, "missing notification_id")
			r.logger.Warn("rabbitmq mark_read without notification_id")
			return msg.Ack(false)
		}
		err = r.commands.MarkRead(sendCtx, cmd.NotificationID)
	default:
		span.SetStatus(codes.Error, "unknown action")
		r.logger.Warn("rabbitmq unknown action", zap.String("action", cmd.Action))
		return msg.Ack(false)
	}

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotConnected) || errors.Is(err, domain.ErrInvalidLimit) {
			// The channel never queues commands, so neither does the queue.
			span.SetStatus(codes.Error, "command dropped")
			r.logger.Warn("rabbitmq command dropped", zap.String("action", cmd.Action), zap.Error(err))
			return msg.Ack(false)
		}
		span.SetStatus(codes.Error, "command failed")
		r.logger.Error("rabbitmq command failed", zap.String("action", cmd.Action), zap.Error(err))
		if nackErr := msg.Nack(false, true); nackErr != nil {
			r.logger.Error("rabbitmq nack failed", zap.Error(nackErr))
		}
		return nil
	}

	return msg.Ack(false)
}
