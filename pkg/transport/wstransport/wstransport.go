// Package wstransport is a handshake.Transport over a single WebSocket
// connection, adapted from the mesh client's connection handling: a
// read/write/ping goroutine trio driven by channels and a cancelable
// context, rather than direct synchronous writes to the socket.
package wstransport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config mirrors the dial/keepalive knobs the mesh client exposes for its
// WebSocket transport.
type Config struct {
	TLSConfig        *tls.Config
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
}

// DefaultConfig returns the same timeouts the mesh client ships with.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     20 * time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

var ErrClosed = errors.New("wstransport: endpoint closed")

// Upgrader builds a websocket.Upgrader that accepts any origin, for servers
// accepting inbound connections via Accept. cfg is not consulted here: the
// upgrader keeps gorilla's default buffer sizes, and Accept applies
// cfg.MaxMessageSize as the connection's read limit.
func Upgrader(cfg Config) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// Endpoint is one side of a point-to-point WebSocket connection to a single
// named peer. Unlike the in-memory bus, an Endpoint only ever talks to the
// one peer it was dialed to or accepted from; Send's peer argument is
// checked against that identity rather than used for routing.
type Endpoint struct {
	cfg    Config
	conn   *websocket.Conn
	peerID string

	sendChan chan []byte
	errChan  chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	onRecv  func(peer string, data []byte)
	closed  bool
}

// Dial opens a client-side connection to peerID at url (ws:// or wss://)
// and starts its read/write/ping loops.
func Dial(ctx context.Context, cfg Config, peerID, rawURL string) (*Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("wstransport: invalid url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		TLSClientConfig:  cfg.TLSConfig,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := &net.Dialer{Timeout: cfg.HandshakeTimeout}
			return d.DialContext(ctx, network, addr)
		},
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wstransport: dial: %w", err)
	}

	return newEndpoint(cfg, conn, peerID), nil
}

// Accept wraps an already-upgraded connection (from http.HandlerFunc calling
// Upgrader(cfg).Upgrade) as the server side of the same point-to-point link.
func Accept(cfg Config, conn *websocket.Conn, peerID string) *Endpoint {
	return newEndpoint(cfg, conn, peerID)
}

func newEndpoint(cfg Config, conn *websocket.Conn, peerID string) *Endpoint {
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Endpoint{
		cfg:      cfg,
		conn:     conn,
		peerID:   peerID,
		sendChan: make(chan []byte, 16),
		errChan:  make(chan error, 4),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.wg.Add(3)
	go e.readLoop()
	go e.writeLoop()
	go e.pingLoop()
	return e
}

// SetOnReceive registers the handler invoked for every frame read off the
// socket. The peer argument handed to the handler is always e's own
// configured peerID, since a single Endpoint has exactly one counterparty.
func (e *Endpoint) SetOnReceive(handler func(peer string, data []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRecv = handler
}

// Send queues a frame for transmission. It returns once the frame is
// handed to the write loop, not once it reaches the wire.
func (e *Endpoint) Send(ctx context.Context, peer string, data []byte) error {
	if peer != e.peerID {
		return fmt.Errorf("wstransport: endpoint bound to %q, not %q", e.peerID, peer)
	}

	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	frame := make([]byte, len(data))
	copy(frame, data)

	select {
	case e.sendChan <- frame:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Errors surfaces read/write/ping failures the loops can't return directly.
func (e *Endpoint) Errors() <-chan error {
	return e.errChan
}

// Close stops the loops and closes the underlying connection.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing")
	_ = e.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
	return e.conn.Close()
}

func (e *Endpoint) readLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		if e.cfg.ReadTimeout > 0 {
			_ = e.conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))
		}

		_, data, err := e.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				e.reportError(fmt.Errorf("read: %w", err))
			}
			return
		}

		e.mu.RLock()
		handler := e.onRecv
		e.mu.RUnlock()
		if handler != nil {
			handler(e.peerID, data)
		}
	}
}

func (e *Endpoint) writeLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case data := <-e.sendChan:
			if e.cfg.WriteTimeout > 0 {
				_ = e.conn.SetWriteDeadline(time.Now().Add(e.cfg.WriteTimeout))
			}
			if err := e.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				e.reportError(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (e *Endpoint) pingLoop() {
	defer e.wg.Done()
	if e.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(e.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := e.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				e.reportError(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (e *Endpoint) reportError(err error) {
	select {
	case e.errChan <- err:
	default:
	}
}
