package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"notifyd/internal/model"
	"notifyd/internal/state"
)

func newHandler(t *testing.T) (*Handler, *state.Store, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	store := state.New(nil)
	return NewHandler(store, nil, zap.New(core)), store, logs
}

func feed(t *testing.T, h *Handler, frames ...string) {
	t.Helper()
	for _, f := range frames {
		h.Handle(context.Background(), []byte(f))
	}
}

func listIDs(s model.Snapshot) []int64 {
	out := make([]int64, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		out = append(out, n.ID)
	}
	return out
}

func TestHandlerReplaceVersusPrepend(t *testing.T) {
	h, store, _ := newHandler(t)

	feed(t, h,
		`{"type":"recent_notifications","notifications":[{"id":1,"title":"A"},{"id":2,"title":"B"}]}`,
		`{"type":"notification","data":{"id":3,"title":"C","notification_type":"inventory_alert"}}`,
	)
	require.Equal(t, []int64{3, 1, 2}, listIDs(store.Snapshot()))

	feed(t, h, `{"type":"recent_notifications","notifications":[{"id":10,"title":"X"}]}`)
	require.Equal(t, []int64{10}, listIDs(store.Snapshot()))
}

func TestHandlerCountIsIndependentOfList(t *testing.T) {
	h, store, _ := newHandler(t)

	feed(t, h,
		`{"type":"recent_notifications","notifications":[{"id":1},{"id":2}]}`,
		`{"type":"count","count":7}`,
	)
	snapshot := store.Snapshot()
	require.Len(t, snapshot.Notifications, 2)
	require.Equal(t, 7, snapshot.UnreadCount)

	feed(t, h, `{"type":"count"}`)
	require.Equal(t, 0, store.Snapshot().UnreadCount)
}

func TestHandlerMarkReadSuccess(t *testing.T) {
	t.Run("known id", func(t *testing.T) {
		h, store, _ := newHandler(t)
		feed(t, h,
			`{"type":"recent_notifications","notifications":[{"id":1},{"id":2}]}`,
			`{"type":"count","count":2}`,
			`{"type":"mark_read_success","data":{"id":2},"count":1}`,
		)
		snapshot := store.Snapshot()
		require.False(t, snapshot.Notifications[0].IsRead)
		require.True(t, snapshot.Notifications[1].IsRead)
		require.Equal(t, 1, snapshot.UnreadCount)
	})

	t.Run("unknown id still applies count", func(t *testing.T) {
		h, store, _ := newHandler(t)
		feed(t, h,
			`{"type":"recent_notifications","notifications":[{"id":1}]}`,
			`{"type":"count","count":4}`,
			`{"type":"mark_read_success","data":{"id":99},"count":3}`,
		)
		snapshot := store.Snapshot()
		require.Equal(t, []int64{1}, listIDs(snapshot))
		require.False(t, snapshot.Notifications[0].IsRead)
		require.Equal(t, 3, snapshot.UnreadCount)
	})

	t.Run("without count keeps counter", func(t *testing.T) {
		h, store, _ := newHandler(t)
		feed(t, h,
			`{"type":"recent_notifications","notifications":[{"id":1}]}`,
			`{"type":"count","count":4}`,
			`{"type":"mark_read_success","data":{"id":1}}`,
		)
		snapshot := store.Snapshot()
		require.True(t, snapshot.Notifications[0].IsRead)
		require.Equal(t, 4, snapshot.UnreadCount)
	})

	t.Run("null data marks nothing", func(t *testing.T) {
		h, store, _ := newHandler(t)
		feed(t, h,
			`{"type":"recent_notifications","notifications":[{"id":0},{"id":1}]}`,
			`{"type":"mark_read_success","data":null,"count":2}`,
		)
		snapshot := store.Snapshot()
		require.False(t, snapshot.Notifications[0].IsRead)
		require.False(t, snapshot.Notifications[1].IsRead)
		require.Equal(t, 2, snapshot.UnreadCount)

		msg, err := Decode([]byte(`{"type":"mark_read_success","data":null}`))
		require.NoError(t, err)
		_, ok := msg.MarkedReadID()
		require.False(t, ok)
	})
}

func TestHandlerMalformedFrames(t *testing.T) {
	h, store, logs := newHandler(t)
	feed(t, h,
		`{"type":"recent_notifications","notifications":[{"id":1}]}`,
		`{"type":"count","count":5}`,
	)
	before := store.Snapshot()

	frames := []string{
		"not json at all",
		`{"type":`,
		`{"count":3}`,
		`{"type":"notification"}`,
		`{"type":"notification","data":"oops"}`,
	}
	for _, f := range frames {
		require.NotPanics(t, func() {
			_, ok := h.Handle(context.Background(), []byte(f))
			require.False(t, ok)
		})
	}

	require.Equal(t, before, store.Snapshot())
	require.Equal(t, len(frames), logs.FilterMessageSnippet("dropping").Len())
}

func TestHandlerLogOnlyMessages(t *testing.T) {
	h, store, logs := newHandler(t)

	msg, ok := h.Handle(context.Background(), []byte(`{"type":"connected","message":"hello"}`))
	require.True(t, ok)
	require.Equal(t, TypeConnected, msg.Type)

	_, ok = h.Handle(context.Background(), []byte(`{"type":"typing_indicator","user":7}`))
	require.True(t, ok)

	require.Equal(t, model.Snapshot{Notifications: []model.Notification{}}, store.Snapshot())
	require.Equal(t, 1, logs.FilterMessage("notification channel ready").Len())
	require.Equal(t, 1, logs.FilterMessage("ignoring unknown message type").Len())
}

func TestHandlerServerError(t *testing.T) {
	h, store, logs := newHandler(t)

	_, ok := h.Handle(context.Background(), []byte(`{"type":"error","message":"Invalid action"}`))
	require.True(t, ok)
	require.Equal(t, "Invalid action", store.Snapshot().LastError)
	require.Equal(t, 1, logs.FilterMessage("server reported error").Len())
}

func TestHandlerDecodesFullRecord(t *testing.T) {
	h, store, _ := newHandler(t)

	feed(t, h, `{"type":"notification","data":{"id":12,"notification_type":"appointment_reminder",`+
		`"title":"Upcoming visit","message":"Rex at 10:00","reference_id":44,"reference_type":"appointment",`+
		`"sent_at":"2026-10-17T09:00:00Z","is_read":false}}`)

	got := store.Snapshot().Notifications[0]
	require.Equal(t, int64(12), got.ID)
	require.Equal(t, "appointment_reminder", got.Kind)
	require.Equal(t, "Rex at 10:00", got.Body)
	require.NotNil(t, got.ReferenceID)
	require.Equal(t, int64(44), *got.ReferenceID)
	require.Equal(t, "appointment", *got.ReferenceKind)
	require.Equal(t, "2026-10-17T09:00:00Z", got.SentAt)
}
