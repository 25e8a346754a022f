package protocol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notifyd/internal/domain"
	"notifyd/internal/metrics"
	"notifyd/internal/model"
	"notifyd/internal/telemetry"
)

// Store is the state the handler folds messages into.
type Store interface {
	ReplaceAll(notifications []model.Notification)
	Prepend(notification model.Notification)
	MarkRead(id int64) bool
	SetUnread(count int)
	SetLastError(message string)
}

type Handler struct {
	store   Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHandler(store Store, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{store: store, metrics: m, log: logger}
}

// Handle decodes one inbound frame and applies it to the store. It returns
// the decoded message and whether it was applied; malformed frames are
// logged and dropped.
func (h *Handler) Handle(ctx context.Context, frame []byte) (Message, bool) {
	_, span := telemetry.Tracer("protocol").Start(ctx, "protocol.handle_frame")
	defer span.End()

	msg, err := Decode(frame)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed frame")
		h.metrics.FrameMalformed()
		h.log.Warn("dropping malformed frame", zap.Int("size", len(frame)), zap.Error(err))
		return Message{}, false
	}
	span.SetAttributes(attribute.String("notifyd.message_type", msg.Type))
	h.metrics.FrameReceived(msg.Type)

	if err := h.apply(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		h.metrics.FrameMalformed()
		h.log.Warn("dropping frame", zap.String("type", msg.Type), zap.Error(err))
		return msg, false
	}
	return msg, true
}

func (h *Handler) apply(msg Message) error {
	switch msg.Type {
	case TypeConnected:
		h.log.Info("notification channel ready", zap.String("message", msg.Message))
	case TypeCount:
		count := 0
		if msg.Count != nil {
			count = *msg.Count
		}
		h.store.SetUnread(count)
	case TypeNotification:
		n, err := msg.Notification()
		if err != nil {
			return err
		}
		h.metrics.NotificationPushed(domain.NormalizeKind(n.Kind))
		h.store.Prepend(n)
	case TypeRecentNotifications:
		h.store.ReplaceAll(msg.Notifications)
	case TypeMarkReadSuccess:
		if id, ok := msg.MarkedReadID(); ok {
			if !h.store.MarkRead(id) {
				h.log.Debug("mark read confirmed for notification not in list", zap.Int64("id", id))
			}
		}
		if msg.Count != nil {
			h.store.SetUnread(*msg.Count)
		}
	case TypeError:
		h.log.Warn("server reported error", zap.String("message", msg.Message))
		h.store.SetLastError(msg.Message)
	default:
		h.log.Debug("ignoring unknown message type", zap.String("type", msg.Type))
	}
	return nil
}
