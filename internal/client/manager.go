package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/domain"
	"notifyd/internal/metrics"
	"notifyd/internal/protocol"
	"notifyd/internal/telemetry"
)

// FrameHandler consumes inbound text frames in arrival order.
type FrameHandler interface {
	Handle(ctx context.Context, frame []byte)
}

// StateSink is told about every connected/disconnected transition.
type StateSink interface {
	SetConnected(connected bool)
}

type Options struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	RecentLimit          int
	ConnectDelay         time.Duration
	HandshakeTimeout     time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:                  cfg.NotifyURL,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		RecentLimit:          cfg.RecentLimit,
		ConnectDelay:         cfg.ConnectDelay,
		HandshakeTimeout:     cfg.HandshakeTimeout,
	}
}

type dialResult struct {
	gen  uint64
	conn Conn
	err  error
}

type frameEvent struct {
	gen   uint64
	frame []byte
	err   error
}

type writeRequest struct {
	frame []byte
	reply chan error
}

// Manager keeps at most one notification socket open for the current token.
// All socket, timer and retry state is owned by the Run goroutine; the
// exported methods talk to it over channels.
type Manager struct {
	opts    Options
	dialer  Dialer
	handler FrameHandler
	sink    StateSink
	metrics *metrics.Metrics
	log     *zap.Logger

	tokens      chan string
	writes      chan writeRequest
	teardowns   chan chan struct{}
	dialResults chan dialResult
	frames      chan frameEvent
	done        chan struct{}
	connected   atomic.Bool

	token          string
	conn           Conn
	gen            uint64
	attempts       int
	dialing        bool
	cancelDial     context.CancelFunc
	connectTimer   *time.Timer
	reconnectTimer *time.Timer
}

func NewManager(cfg *config.Config, dialer Dialer, handler FrameHandler, sink StateSink, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return newManager(OptionsFromConfig(cfg), dialer, handler, sink, m, logger)
}

func newManager(opts Options, dialer Dialer, handler FrameHandler, sink StateSink, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 20
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	return &Manager{
		opts:        opts,
		dialer:      dialer,
		handler:     handler,
		sink:        sink,
		metrics:     m,
		log:         logger.With(zap.String("channel", uuid.NewString())),
		tokens:      make(chan string),
		writes:      make(chan writeRequest),
		teardowns:   make(chan chan struct{}),
		dialResults: make(chan dialResult),
		frames:      make(chan frameEvent),
		done:        make(chan struct{}),
	}
}

// Connect asks the manager to open the channel for token. It is a no-op when
// the channel for the same token is already open or being opened. An empty
// token disconnects.
func (m *Manager) Connect(token string) {
	select {
	case m.tokens <- token:
	case <-m.done:
	}
}

// Disconnect cancels pending timers and dials and closes the socket. It
// returns once the teardown is complete and is safe to call repeatedly.
func (m *Manager) Disconnect() {
	ack := make(chan struct{})
	select {
	case m.teardowns <- ack:
		<-ack
	case <-m.done:
	}
}

// Send writes one text frame if the socket is open. Frames are never queued.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	req := writeRequest{frame: frame, reply: make(chan error, 1)}
	select {
	case m.writes <- req:
	case <-m.done:
		return domain.ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Connected() bool {
	return m.connected.Load()
}

func (m *Manager) State() domain.ConnectionState {
	if m.Connected() {
		return domain.StateConnected
	}
	return domain.StateDisconnected
}

// Follow binds the channel lifecycle to a token stream: each non-empty token
// connects, an empty token disconnects. It returns when ctx is done or the
// stream is closed.
func (m *Manager) Follow(ctx context.Context, tokens <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case token, ok := <-tokens:
			if !ok {
				return
			}
			m.Connect(token)
		}
	}
}

// Run processes connection events until ctx is done, then tears the channel
// down.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	defer m.teardown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case token := <-m.tokens:
			m.setToken(ctx, token)
		case <-timerC(m.connectTimer):
			m.connectTimer = nil
			m.dial(ctx)
		case <-timerC(m.reconnectTimer):
			m.reconnectTimer = nil
			m.dial(ctx)
		case res := <-m.dialResults:
			m.onDialed(ctx, res)
		case ev := <-m.frames:
			m.onFrame(ctx, ev)
		case req := <-m.writes:
			req.reply <- m.write(req.frame)
		case ack := <-m.teardowns:
			m.teardown()
			close(ack)
		}
	}
}

func (m *Manager) setToken(ctx context.Context, token string) {
	if token == "" {
		if m.token != "" {
			m.log.Info("token cleared, closing notification channel")
		}
		m.teardown()
		m.token = ""
		return
	}
	if token == m.token && m.active() {
		return
	}
	m.teardown()
	m.token = token
	m.attempts = 0
	if m.opts.ConnectDelay > 0 {
		m.connectTimer = time.NewTimer(m.opts.ConnectDelay)
		return
	}
	m.dial(ctx)
}

func (m *Manager) active() bool {
	return m.conn != nil || m.dialing || m.connectTimer != nil || m.reconnectTimer != nil
}

func (m *Manager) dial(ctx context.Context) {
	m.gen++
	gen := m.gen

	target, err := BuildURL(m.opts.URL, m.token)
	if err != nil {
		m.log.Error("cannot build notification url", zap.Error(err))
		m.metrics.Dial(false)
		m.scheduleReconnect()
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.opts.HandshakeTimeout)
	m.cancelDial = cancel
	m.dialing = true

	go func() {
		defer cancel()
		spanCtx, span := telemetry.Tracer("client").Start(dialCtx, "ws.dial")
		span.SetAttributes(attribute.Int("notifyd.generation", int(gen)))
		conn, err := m.dialer.Dial(spanCtx, target)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "dial failed")
		}
		span.End()

		select {
		case m.dialResults <- dialResult{gen: gen, conn: conn, err: err}:
		case <-m.done:
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
}

func (m *Manager) onDialed(ctx context.Context, res dialResult) {
	if res.gen != m.gen {
		if res.conn != nil {
			_ = res.conn.Close()
		}
		return
	}
	m.dialing = false
	m.cancelDial = nil

	if res.err != nil {
		m.metrics.Dial(false)
		m.log.Warn("notification channel connect failed", zap.Int("attempt", m.attempts), zap.Error(res.err))
		m.scheduleReconnect()
		return
	}

	m.metrics.Dial(true)
	m.conn = res.conn
	m.attempts = 0
	m.setConnected(true)
	m.log.Info("notification channel connected")

	go m.read(res.gen, res.conn)

	frame, err := protocol.EncodeGetRecent(m.opts.RecentLimit)
	if err == nil {
		err = m.write(frame)
	}
	m.metrics.CommandSent(protocol.ActionGetRecent, err)
	if err != nil {
		m.log.Warn("initial get_recent failed", zap.Error(err))
	}
}

func (m *Manager) read(gen uint64, conn Conn) {
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			select {
			case m.frames <- frameEvent{gen: gen, err: err}:
			case <-m.done:
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case m.frames <- frameEvent{gen: gen, frame: frame}:
		case <-m.done:
			return
		}
	}
}

func (m *Manager) onFrame(ctx context.Context, ev frameEvent) {
	if ev.gen != m.gen || m.conn == nil {
		return
	}
	if ev.err == nil {
		m.handler.Handle(ctx, ev.frame)
		return
	}

	if websocket.IsCloseError(ev.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		m.log.Info("notification channel closed by server", zap.Error(ev.err))
	} else {
		m.log.Warn("notification channel error", zap.Error(ev.err))
	}
	_ = m.conn.Close()
	m.conn = nil
	m.setConnected(false)
	m.scheduleReconnect()
}

func (m *Manager) scheduleReconnect() {
	if m.attempts >= m.opts.MaxReconnectAttempts {
		m.log.Warn("giving up on notification channel", zap.Int("attempts", m.attempts))
		return
	}
	m.attempts++
	m.metrics.ReconnectScheduled()
	m.log.Info("scheduling reconnect",
		zap.Int("attempt", m.attempts),
		zap.Int("max_attempts", m.opts.MaxReconnectAttempts),
		zap.Duration("delay", m.opts.ReconnectDelay),
	)
	m.reconnectTimer = time.NewTimer(m.opts.ReconnectDelay)
}

func (m *Manager) write(frame []byte) error {
	if m.conn == nil {
		return domain.ErrNotConnected
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		m.log.Warn("notification channel write failed", zap.Error(err))
		return err
	}
	return nil
}

// teardown leaves the manager idle: no timers, no dial, no socket. Events
// from the previous generation are ignored afterwards.
func (m *Manager) teardown() {
	stopTimer(&m.connectTimer)
	stopTimer(&m.reconnectTimer)
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.dialing = false
	m.gen++
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setConnected(false)
}

func (m *Manager) setConnected(connected bool) {
	if m.connected.Swap(connected) == connected {
		return
	}
	m.metrics.SetConnected(connected)
	if m.sink != nil {
		m.sink.SetConnected(connected)
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
