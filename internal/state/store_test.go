package state

import (
	"testing"

	"github.com/stretchr/testify/require"
	"notifyd/internal/model"
)

type publisherStub struct {
	snapshots []model.Snapshot
}

func (p *publisherStub) Broadcast(snapshot model.Snapshot) {
	p.snapshots = append(p.snapshots, snapshot)
}

func ids(snapshot model.Snapshot) []int64 {
	out := make([]int64, 0, len(snapshot.Notifications))
	for _, n := range snapshot.Notifications {
		out = append(out, n.ID)
	}
	return out
}

func TestStoreReplaceAndPrepend(t *testing.T) {
	s := New(nil)

	s.ReplaceAll([]model.Notification{{ID: 1}, {ID: 2}})
	s.Prepend(model.Notification{ID: 3})
	require.Equal(t, []int64{3, 1, 2}, ids(s.Snapshot()))

	s.ReplaceAll([]model.Notification{{ID: 9}})
	require.Equal(t, []int64{9}, ids(s.Snapshot()))
}

func TestStorePrependKeepsIDsUnique(t *testing.T) {
	s := New(nil)
	s.ReplaceAll([]model.Notification{{ID: 1, Title: "old"}, {ID: 2}})
	s.Prepend(model.Notification{ID: 2, Title: "new"})

	snapshot := s.Snapshot()
	require.Equal(t, []int64{2, 1}, ids(snapshot))
	require.Equal(t, "new", snapshot.Notifications[0].Title)
}

func TestStoreReplaceAllDropsRepeatedIDs(t *testing.T) {
	s := New(nil)
	s.ReplaceAll([]model.Notification{{ID: 3, Title: "first"}, {ID: 1}, {ID: 3, Title: "second"}, {ID: 1}})

	snapshot := s.Snapshot()
	require.Equal(t, []int64{3, 1}, ids(snapshot))
	require.Equal(t, "first", snapshot.Notifications[0].Title)
}

func TestStoreMarkRead(t *testing.T) {
	s := New(nil)
	s.ReplaceAll([]model.Notification{{ID: 1}, {ID: 2}})

	require.True(t, s.MarkRead(2))
	require.False(t, s.MarkRead(42))

	snapshot := s.Snapshot()
	require.Len(t, snapshot.Notifications, 2)
	require.False(t, snapshot.Notifications[0].IsRead)
	require.True(t, snapshot.Notifications[1].IsRead)
}

func TestStoreUnreadIsIndependentOfList(t *testing.T) {
	s := New(nil)
	s.ReplaceAll([]model.Notification{{ID: 1}, {ID: 2}})
	s.SetUnread(7)

	snapshot := s.Snapshot()
	require.Equal(t, 7, snapshot.UnreadCount)
	require.Len(t, snapshot.Notifications, 2)

	s.SetUnread(-3)
	require.Equal(t, 0, s.Snapshot().UnreadCount)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := New(nil)
	s.ReplaceAll([]model.Notification{{ID: 1}})

	snapshot := s.Snapshot()
	snapshot.Notifications[0].IsRead = true

	require.False(t, s.Snapshot().Notifications[0].IsRead)
}

func TestStorePublishesOnChange(t *testing.T) {
	pub := &publisherStub{}
	s := New(pub)

	s.SetConnected(true)
	s.SetConnected(true)
	s.Prepend(model.Notification{ID: 5})
	s.MarkRead(99)
	s.SetLastError("boom")

	require.Len(t, pub.snapshots, 3)
	last := pub.snapshots[len(pub.snapshots)-1]
	require.True(t, last.Connected)
	require.Equal(t, "boom", last.LastError)
	require.Equal(t, []int64{5}, ids(last))
}
