package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"notifyd/internal/config"
	"notifyd/internal/domain"
)

// Conn is the part of a websocket connection the manager uses. Reads happen
// on one goroutine and writes/Close on another.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, target string) (Conn, error)
}

type WebsocketDialer struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewWebsocketDialer(cfg *config.Config) Dialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, target string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return newWSConn(conn, d.writeTimeout, d.pingInterval, d.pongTimeout), nil
}

// wsConn pings the peer every pingInterval and fails the pending read when
// nothing, pongs included, arrives within pongTimeout. A silently dropped
// connection therefore surfaces as a read error.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pongTimeout  time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

func newWSConn(conn *websocket.Conn, writeTimeout, pingInterval, pongTimeout time.Duration) *wsConn {
	c := &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
		stop:         make(chan struct{}),
	}
	if pongTimeout > 0 {
		c.extendReadDeadline()
		conn.SetPongHandler(func(string) error {
			c.extendReadDeadline()
			return nil
		})
	}
	if pingInterval > 0 {
		go c.keepalive(pingInterval)
	}
	return c
}

func (c *wsConn) extendReadDeadline() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
}

func (c *wsConn) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(interval)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) ReadMessage() (int, []byte, error) {
	kind, frame, err := c.conn.ReadMessage()
	if err == nil && c.pongTimeout > 0 {
		c.extendReadDeadline()
	}
	return kind, frame, err
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteMessage(messageType, data)
}

// Close sends a normal-closure frame when the peer is still there, then
// drops the TCP connection.
func (c *wsConn) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

// BuildURL embeds the bearer token as the token query parameter.
func BuildURL(base, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse notification url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("notification url scheme %q: want ws or wss", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
