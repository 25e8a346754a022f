package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"notifyd/internal/auth"
	"notifyd/internal/config"
	"notifyd/internal/domain"
	"notifyd/internal/model"
	"notifyd/internal/repository"
)

type Snapshotter interface {
	Snapshot() model.Snapshot
}

type CommandSender interface {
	RequestRecent(ctx context.Context, limit int) error
	MarkRead(ctx context.Context, notificationID int64) error
}

type Session interface {
	SetToken(token string) error
	Clear() error
	Token() string
}

type Service struct {
	cfg     *config.Config
	state   Snapshotter
	sender  CommandSender
	archive repository.NotificationRepository
	session Session
	log     *zap.Logger
}

func NewService(cfg *config.Config, state Snapshotter, sender CommandSender, archive repository.NotificationRepository, session Session, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, state: state, sender: sender, archive: archive, session: session, log: logger}
}

func (s *Service) Snapshot() model.Snapshot {
	return s.state.Snapshot()
}

// Refresh asks the server for the latest page. A non-positive limit uses
// the configured page size.
func (s *Service) Refresh(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = s.cfg.RecentLimit
	}
	if err := s.sender.RequestRecent(ctx, limit); err != nil {
		if !errors.Is(err, domain.ErrNotConnected) {
			s.log.Error("refresh failed", zap.Int("limit", limit), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) MarkRead(ctx context.Context, id int64) error {
	if err := s.sender.MarkRead(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotConnected) {
			s.log.Error("mark read failed", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) History(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	history, err := s.archive.ListNotifications(ctx, limit)
	if err != nil {
		s.log.Error("archive list failed", zap.Int("limit", limit), zap.Error(err))
		return nil, err
	}
	return history, nil
}

// Login stores the token; the connection manager picks it up from the
// session subscription.
func (s *Service) Login(token string) error {
	if err := s.session.SetToken(token); err != nil {
		if !errors.Is(err, domain.ErrInvalidToken) {
			s.log.Error("store token failed", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *Service) Logout() error {
	if err := s.session.Clear(); err != nil {
		s.log.Error("clear token failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) LoggedIn() bool {
	return s.session.Token() != ""
}

var _ Session = (*auth.Session)(nil)
