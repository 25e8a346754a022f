package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"notifyd/internal/domain"
	"notifyd/internal/metrics"
	"notifyd/internal/protocol"
)

type FrameSender interface {
	Send(ctx context.Context, frame []byte) error
}

// Sender issues commands on the open socket. Read state is never changed
// locally; the UI waits for the server's mark_read_success.
type Sender struct {
	conn    FrameSender
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewSender(conn FrameSender, m *metrics.Metrics, logger *zap.Logger) *Sender {
	return &Sender{conn: conn, metrics: m, log: logger}
}

func (s *Sender) RequestRecent(ctx context.Context, limit int) error {
	frame, err := protocol.EncodeGetRecent(limit)
	if err != nil {
		return err
	}
	return s.send(ctx, protocol.ActionGetRecent, frame)
}

func (s *Sender) MarkRead(ctx context.Context, notificationID int64) error {
	frame, err := protocol.EncodeMarkRead(notificationID)
	if err != nil {
		return err
	}
	return s.send(ctx, protocol.ActionMarkRead, frame)
}

func (s *Sender) send(ctx context.Context, action string, frame []byte) error {
	err := s.conn.Send(ctx, frame)
	s.metrics.CommandSent(action, err)
	if err != nil {
		if errors.Is(err, domain.ErrNotConnected) {
			s.log.Debug("command skipped, channel not connected", zap.String("action", action))
			return err
		}
		return fmt.Errorf("send %s: %w", action, err)
	}
	return nil
}
