package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/domain"
	"notifyd/internal/model"
	"notifyd/internal/protocol"
	"notifyd/internal/queue"
	"notifyd/internal/repository"
)

const (
	sideEffectTimeout      = 5 * time.Second
	defaultSideEffectQueue = 256
)

// Ingest is the frame handler of the connection manager. Handle folds every
// frame into the store on the caller's goroutine and queues the archive and
// relay work for Run. Archive and relay failures are logged and never touch
// the store.
type Ingest struct {
	handler *protocol.Handler
	archive repository.NotificationRepository
	relay   queue.Publisher
	prefix  string
	effects chan protocol.Message
	log     *zap.Logger
}

func NewIngest(cfg *config.Config, handler *protocol.Handler, archive repository.NotificationRepository, relay queue.Publisher, logger *zap.Logger) *Ingest {
	prefix := cfg.RabbitPublishPrefix
	if prefix == "" {
		prefix = "notification"
	}
	size := cfg.SideEffectQueue
	if size <= 0 {
		size = defaultSideEffectQueue
	}
	return &Ingest{
		handler: handler,
		archive: archive,
		relay:   relay,
		prefix:  prefix,
		effects: make(chan protocol.Message, size),
		log:     logger,
	}
}

// Handle never waits on the archive or the broker. When the queue is full
// the side effects of the frame are dropped.
func (i *Ingest) Handle(ctx context.Context, frame []byte) {
	msg, ok := i.handler.Handle(ctx, frame)
	if !ok {
		return
	}
	switch msg.Type {
	case protocol.TypeNotification, protocol.TypeRecentNotifications, protocol.TypeMarkReadSuccess:
	default:
		return
	}

	select {
	case i.effects <- msg:
	default:
		i.log.Warn("side effect queue full, dropping archive and relay",
			zap.String("type", msg.Type),
			zap.Int("capacity", cap(i.effects)),
		)
	}
}

// Run archives and relays queued messages until ctx is done.
func (i *Ingest) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-i.effects:
			i.apply(ctx, msg)
		}
	}
}

func (i *Ingest) apply(ctx context.Context, msg protocol.Message) {
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()

	switch msg.Type {
	case protocol.TypeNotification:
		n, err := msg.Notification()
		if err != nil {
			return
		}
		i.save(ctx, []model.Notification{n})
		i.publish(ctx, n)
	case protocol.TypeRecentNotifications:
		i.save(ctx, msg.Notifications)
	case protocol.TypeMarkReadSuccess:
		if id, ok := msg.MarkedReadID(); ok {
			if err := i.archive.MarkRead(ctx, id); err != nil {
				i.log.Error("archive mark read failed", zap.Int64("id", id), zap.Error(err))
			}
		}
	}
}

func (i *Ingest) save(ctx context.Context, notifications []model.Notification) {
	if err := i.archive.SaveNotifications(ctx, notifications); err != nil {
		i.log.Error("archive notifications failed", zap.Int("count", len(notifications)), zap.Error(err))
	}
}

func (i *Ingest) publish(ctx context.Context, n model.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		i.log.Error("relay payload marshal failed", zap.Int64("id", n.ID), zap.Error(err))
		return
	}
	routingKey := queue.RoutingKey(i.prefix, domain.NormalizeKind(n.Kind))
	if err := i.relay.Publish(ctx, payload, routingKey); err != nil {
		i.log.Error("relay notification failed",
			zap.Int64("id", n.ID),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
