package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifyd/internal/auth"
	"notifyd/internal/client"
	"notifyd/internal/config"
	httpserver "notifyd/internal/http"
	"notifyd/internal/http/controller"
	"notifyd/internal/http/middleware"
	"notifyd/internal/metrics"
	"notifyd/internal/model"
	"notifyd/internal/protocol"
	"notifyd/internal/queue"
	"notifyd/internal/queue/rabbitmq"
	"notifyd/internal/service/notify"
	"notifyd/internal/sse"
	"notifyd/internal/state"
	"notifyd/internal/store/memory"
)

// backend is a fake notification server. Every accepted socket is handed to
// the test through conns; the test drives both directions.
type backend struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	conns    chan *websocket.Conn
	tokens   chan string
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		conns:  make(chan *websocket.Conn, 8),
		tokens: make(chan string, 8),
	}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.tokens <- token
		b.conns <- conn
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws/notifications"
}

func (b *backend) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-b.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(3 * time.Second):
		t.Fatalf("client never connected")
		return nil
	}
}

func readCommand(t *testing.T, conn *websocket.Conn) protocol.Command {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var cmd protocol.Command
	require.NoError(t, json.Unmarshal(frame, &cmd))
	return cmd
}

func push(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

type daemon struct {
	server  *httptest.Server
	store   *state.Store
	manager *client.Manager
	session *auth.Session
	archive *memory.Store
	svc     *notify.Service
}

func startDaemon(t *testing.T, cfg *config.Config) *daemon {
	t.Helper()
	return startDaemonWithRelay(t, cfg, rabbitmq.NewPublisher(cfg, zap.NewNop()))
}

func startDaemonWithRelay(t *testing.T, cfg *config.Config, relay queue.Publisher) *daemon {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	m := metrics.New()

	hub := sse.NewHub()
	store := state.New(hub)
	archive := memory.New(logger)
	ingest := notify.NewIngest(cfg, protocol.NewHandler(store, m, logger), archive, relay, logger)
	manager := client.NewManager(cfg, client.NewWebsocketDialer(cfg), ingest, store, m, logger)
	session := auth.NewSessionWithKeyring(keyring.NewArrayKeyring(nil), logger)
	svc := notify.NewService(cfg, store, client.NewSender(manager, m, logger), archive, session, logger)
	handler := controller.NewHandler(cfg, svc, hub, logger)
	router := httpserver.NewRouter(cfg, handler, middleware.NewRateLimiter(cfg), m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 4)
	go func() { hub.Run(ctx); done <- struct{}{} }()
	go func() { ingest.Run(ctx); done <- struct{}{} }()
	go func() { _ = manager.Run(ctx); done <- struct{}{} }()
	tokens, unsubscribe := session.Subscribe()
	go func() { manager.Follow(ctx, tokens); unsubscribe(); done <- struct{}{} }()

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		cancel()
		for i := 0; i < 4; i++ {
			<-done
		}
	})
	return &daemon{server: server, store: store, manager: manager, session: session, archive: archive, svc: svc}
}

func testConfig(wsURL string) *config.Config {
	return &config.Config{
		NotifyURL:            wsURL,
		ReconnectDelay:       50 * time.Millisecond,
		MaxReconnectAttempts: 5,
		RecentLimit:          20,
		HandshakeTimeout:     2 * time.Second,
		WriteTimeout:         2 * time.Second,
		SSEHeartbeat:         time.Hour,
		HistoryLimit:         50,
		APIRateLimit:         100,
		APIRateBurst:         100,
		OTELServiceName:      "notifyd-e2e",
	}
}

// snapshotStream decodes every snapshot event of one /sse response.
type snapshotStream struct {
	events chan model.Snapshot
}

func openSnapshotStream(t *testing.T, baseURL string) *snapshotStream {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/sse", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	t.Cleanup(func() {
		cancel()
		_ = res.Body.Close()
	})

	s := &snapshotStream{events: make(chan model.Snapshot, 64)}
	go s.read(res.Body)
	return s
}

func (s *snapshotStream) read(body io.Reader) {
	defer close(s.events)
	reader := bufio.NewReader(body)
	var dataLines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if len(dataLines) == 0 {
				continue
			}
			var snapshot model.Snapshot
			if json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &snapshot) == nil {
				s.events <- snapshot
			}
			dataLines = nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

// waitFor returns the first snapshot matching cond.
func (s *snapshotStream) waitFor(t *testing.T, cond func(model.Snapshot) bool) model.Snapshot {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case snapshot, ok := <-s.events:
			require.True(t, ok, "sse stream closed")
			if cond(snapshot) {
				return snapshot
			}
		case <-timeout:
			t.Fatalf("no matching snapshot")
			return model.Snapshot{}
		}
	}
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}
