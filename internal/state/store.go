package state

import (
	"sync"

	"notifyd/internal/model"
)

type Publisher interface {
	Broadcast(snapshot model.Snapshot)
}

// Store holds the notification list and unread counter for one channel.
// The counter is only ever set from server values; it is never derived
// from the list, which may be a partial page.
type Store struct {
	mu            sync.RWMutex
	notifications []model.Notification
	unread        int
	connected     bool
	lastError     string
	pub           Publisher
}

// New returns an empty store. pub may be nil.
func New(pub Publisher) *Store {
	return &Store{pub: pub}
}

// ReplaceAll swaps in a server page. Repeated ids keep their first
// occurrence.
func (s *Store) ReplaceAll(notifications []model.Notification) {
	list := make([]model.Notification, 0, len(notifications))
	seen := make(map[int64]struct{}, len(notifications))
	for _, n := range notifications {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		list = append(list, n)
	}

	s.mu.Lock()
	s.notifications = list
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Store) Prepend(notification model.Notification) {
	s.mu.Lock()
	for i, existing := range s.notifications {
		if existing.ID == notification.ID {
			// Keep ids unique: a re-pushed record moves to the front.
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			break
		}
	}
	s.notifications = append([]model.Notification{notification}, s.notifications...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// MarkRead flags the record with the given id as read and reports whether
// it was present. Unknown ids leave the list untouched.
func (s *Store) MarkRead(id int64) bool {
	s.mu.Lock()
	found := false
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
	return true
}

func (s *Store) SetUnread(count int) {
	if count < 0 {
		count = 0
	}
	s.mu.Lock()
	s.unread = count
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Store) SetLastError(message string) {
	s.mu.Lock()
	s.lastError = message
	snapshot := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() model.Snapshot {
	notifications := make([]model.Notification, len(s.notifications))
	copy(notifications, s.notifications)
	return model.Snapshot{
		Connected:     s.connected,
		UnreadCount:   s.unread,
		Notifications: notifications,
		LastError:     s.lastError,
	}
}

func (s *Store) publish(snapshot model.Snapshot) {
	if s.pub != nil {
		s.pub.Broadcast(snapshot)
	}
}
