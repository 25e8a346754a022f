package client

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var errDialRefused = errors.New("connection refused")

type fakeConn struct {
	incoming chan []byte
	closed   chan struct{}

	mu         sync.Mutex
	written    [][]byte
	closeCalls int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-c.incoming:
		return websocket.TextMessage, frame, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseAbnormalClosure}
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errors.New("write on closed connection")
	default:
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

// drop simulates the server going away without the client calling Close.
func (c *fakeConn) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *fakeConn) writes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, w := range c.written {
		out = append(out, string(w))
	}
	return out
}

func (c *fakeConn) closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// fakeDialer plays back a script of connections; a nil entry or a dial past
// the end of the script fails.
type fakeDialer struct {
	mu      sync.Mutex
	script  []*fakeConn
	targets []string
}

func (d *fakeDialer) Dial(_ context.Context, target string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := len(d.targets)
	d.targets = append(d.targets, target)
	if idx >= len(d.script) || d.script[idx] == nil {
		return nil, errDialRefused
	}
	return d.script[idx], nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func (d *fakeDialer) target(i int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.targets[i]
}

type recordingHandler struct {
	mu     sync.Mutex
	frames []string
}

func (h *recordingHandler) Handle(_ context.Context, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, string(frame))
}

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.frames...)
}

type recordingSink struct {
	mu          sync.Mutex
	transitions []bool
}

func (s *recordingSink) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, connected)
}

func (s *recordingSink) history() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.transitions...)
}
