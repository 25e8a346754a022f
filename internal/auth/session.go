package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/domain"
)

const tokenKey = "bearer-token"

// Session holds the current bearer token. A token is only published to
// subscribers after it has been written to the keyring, so anything that
// reacts to the publication can rely on the token being durable.
type Session struct {
	ring keyring.Keyring
	log  *zap.Logger

	mu    sync.Mutex
	token string
	subs  map[chan string]struct{}
}

func NewSession(cfg *config.Config, logger *zap.Logger) (*Session, error) {
	ring, err := openKeyring(cfg)
	if err != nil {
		return nil, err
	}
	s := NewSessionWithKeyring(ring, logger)
	if err := s.Load(cfg.Token); err != nil {
		return nil, err
	}
	return s, nil
}

func NewSessionWithKeyring(ring keyring.Keyring, logger *zap.Logger) *Session {
	return &Session{
		ring: ring,
		log:  logger,
		subs: make(map[chan string]struct{}),
	}
}

func openKeyring(cfg *config.Config) (keyring.Keyring, error) {
	password := cfg.KeyringPassword
	if password == "" {
		password = cfg.KeyringService + "-file-key"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: cfg.KeyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  cfg.KeyringDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(password),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Load restores the session. An override token is stored and wins over
// whatever the keyring holds.
func (s *Session) Load(override string) error {
	if override != "" {
		return s.SetToken(override)
	}
	item, err := s.ring.Get(tokenKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading stored token: %w", err)
	}
	s.publish(string(item.Data))
	return nil
}

func (s *Session) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidToken
	}
	if err := s.ring.Set(keyring.Item{
		Key:         tokenKey,
		Data:        []byte(token),
		Label:       "notifyd bearer token",
		Description: "token for the clinic notification channel",
	}); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	info := Describe(token)
	fields := []zap.Field{zap.String("subject", info.Subject)}
	if !info.ExpiresAt.IsZero() {
		fields = append(fields, zap.Time("expires_at", info.ExpiresAt))
	}
	if info.Expired() {
		s.log.Warn("stored token is already expired", fields...)
	} else {
		s.log.Info("token stored", fields...)
	}

	s.publish(token)
	return nil
}

func (s *Session) Clear() error {
	if err := s.ring.Remove(tokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing token: %w", err)
	}
	s.log.Info("token cleared")
	s.publish("")
	return nil
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe returns a channel that carries the current token and every later
// change. Only the latest value is kept for slow readers. The returned
// function unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if s.token != "" {
		ch <- s.token
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			close(ch)
			s.mu.Unlock()
		})
	}
}

func (s *Session) publish(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- token
	}
}
