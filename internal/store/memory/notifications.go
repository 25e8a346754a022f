package memory

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"notifyd/internal/model"
)

func (s *Store) SaveNotifications(_ context.Context, notifications []model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notifications {
		if existing, ok := s.records[n.ID]; ok && existing.IsRead {
			// Read state only moves forward in the archive.
			n.IsRead = true
		}
		s.records[n.ID] = n
	}
	s.evictLocked()
	return nil
}

func (s *Store) evictLocked() {
	excess := len(s.records) - s.capacity
	if excess <= 0 {
		return
	}
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids[:excess] {
		delete(s.records, id)
	}
	s.log.Debug("archive trimmed", zap.Int("evicted", excess), zap.Int("capacity", s.capacity))
}

func (s *Store) MarkRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.records[id]; ok {
		n.IsRead = true
		s.records[id] = n
	}
	return nil
}

func (s *Store) ListNotifications(_ context.Context, limit int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]model.Notification, 0, len(s.records))
	for _, n := range s.records {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
