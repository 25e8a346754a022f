package memory

import (
	"sync"

	"go.uber.org/zap"
	"notifyd/internal/model"
	"notifyd/internal/repository"
)

// DefaultCapacity bounds the in-memory archive; the lowest ids go first.
const DefaultCapacity = 1000

type Store struct {
	mu       sync.Mutex
	records  map[int64]model.Notification
	capacity int
	log      *zap.Logger
}

var _ repository.NotificationRepository = (*Store)(nil)

func New(logger *zap.Logger) *Store {
	return NewWithCapacity(DefaultCapacity, logger)
}

func NewWithCapacity(capacity int, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{records: make(map[int64]model.Notification), capacity: capacity, log: logger}
}
