// Package quictransport is a handshake.Transport over a QUIC bidirectional
// stream, adapted from the mesh client's relay-free direct path: one UDP
// listener accepting peer connections, one bidirectional stream per peer,
// frames length-prefixed on the wire since a QUIC stream is a byte stream
// rather than a message stream.
package quictransport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// Config mirrors the dial/idle knobs the mesh client sets on its QUIC
// listener and connections.
type Config struct {
	KeepAlivePeriod time.Duration
	MaxIdleTimeout  time.Duration
	MaxFrameSize    uint32
}

// DefaultConfig returns the same keepalive/idle timeouts the mesh client's
// direct path ships with.
func DefaultConfig() Config {
	return Config{
		KeepAlivePeriod: 10 * time.Second,
		MaxIdleTimeout:  30 * time.Second,
		MaxFrameSize:    64 * 1024,
	}
}

func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIncomingStreams:    1,
		MaxIncomingUniStreams: 0,
		KeepAlivePeriod:       c.KeepAlivePeriod,
		MaxIdleTimeout:        c.MaxIdleTimeout,
	}
}

var ErrClosed = errors.New("quictransport: endpoint closed")
var ErrFrameTooLarge = errors.New("quictransport: frame exceeds configured maximum")

// Listener accepts inbound QUIC connections. Each accepted connection's
// bidirectional stream still needs wrapping via Accept once the caller
// learns the connecting peer's identity from the handshake itself.
type Listener struct {
	cfg Config
	ql  *quic.Listener
	udp *net.UDPConn
}

// Listen opens a QUIC listener on addr.
func Listen(addr string, tlsConfig *tls.Config, cfg Config) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("quictransport: resolve: %w", err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("quictransport: listen: %w", err)
	}

	ql, err := quic.Listen(udpConn, tlsConfig, cfg.quicConfig())
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("quictransport: quic listen: %w", err)
	}

	return &Listener{cfg: cfg, ql: ql, udp: udpConn}, nil
}

// AcceptConnection blocks until a peer connects and opens its stream, then
// returns the raw connection for the caller to bind to a peer ID via
// Accept once it has authenticated who dialed in.
func (l *Listener) AcceptConnection(ctx context.Context) (*quic.Conn, *quic.Stream, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("quictransport: accept: %w", err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		conn.CloseWithError(1, "failed to accept stream")
		return nil, nil, fmt.Errorf("quictransport: accept stream: %w", err)
	}
	return conn, stream, nil
}

// Close shuts down the listener and its UDP socket.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Addr returns the address the listener is bound to, for callers that
// listened on port 0 and need to know what port was assigned.
func (l *Listener) Addr() net.Addr {
	return l.ql.Addr()
}

// Endpoint is one peer's bidirectional QUIC stream, implementing
// handshake.Transport.
type Endpoint struct {
	cfg    Config
	conn   *quic.Conn
	stream *quic.Stream
	peerID string

	sendChan chan []byte
	errChan  chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	onRecv func(peer string, data []byte)
	closed bool
}

// Dial opens an outbound connection and bidirectional stream to peerID at
// addr.
func Dial(ctx context.Context, cfg Config, tlsConfig *tls.Config, peerID, addr string) (*Endpoint, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("quictransport: dial: %w", err)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		conn.CloseWithError(1, "failed to open stream")
		return nil, fmt.Errorf("quictransport: open stream: %w", err)
	}

	return newEndpoint(cfg, conn, stream, peerID), nil
}

// Accept wraps a connection and stream obtained from Listener.AcceptConnection
// once the caller knows which peer dialed in.
func Accept(cfg Config, conn *quic.Conn, stream *quic.Stream, peerID string) *Endpoint {
	return newEndpoint(cfg, conn, stream, peerID)
}

func newEndpoint(cfg Config, conn *quic.Conn, stream *quic.Stream, peerID string) *Endpoint {
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = DefaultConfig().MaxFrameSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Endpoint{
		cfg:      cfg,
		conn:     conn,
		stream:   stream,
		peerID:   peerID,
		sendChan: make(chan []byte, 16),
		errChan:  make(chan error, 4),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.wg.Add(2)
	go e.readLoop()
	go e.writeLoop()
	return e
}

// SetOnReceive registers the handler invoked for every frame read off the
// stream. The peer argument handed to the handler is always e's own
// configured peerID.
func (e *Endpoint) SetOnReceive(handler func(peer string, data []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRecv = handler
}

// Send queues a frame for transmission, length-prefixed on the wire.
func (e *Endpoint) Send(ctx context.Context, peer string, data []byte) error {
	if peer != e.peerID {
		return fmt.Errorf("quictransport: endpoint bound to %q, not %q", e.peerID, peer)
	}
	if uint32(len(data)) > e.cfg.MaxFrameSize {
		return ErrFrameTooLarge
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

// Errors surfaces read/write failures the loops can't return directly.
func (e *Endpoint) Errors() <-chan error {
	return e.errChan
}

// Close stops the loops, closes the stream and the underlying connection.
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

	e.stream.Close()
	e.conn.CloseWithError(0, "connection closed")
	return nil
}

func (e *Endpoint) readLoop() {
	defer e.wg.Done()
	lengthPrefix := make([]byte, 4)
	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		if _, err := io.ReadFull(e.stream, lengthPrefix); err != nil {
			e.reportError(fmt.Errorf("read length prefix: %w", err))
			return
		}
		frameLen := binary.BigEndian.Uint32(lengthPrefix)
		if frameLen == 0 || frameLen > e.cfg.MaxFrameSize {
			e.reportError(fmt.Errorf("invalid frame length: %d", frameLen))
			return
		}

		data := make([]byte, frameLen)
		if _, err := io.ReadFull(e.stream, data); err != nil {
			e.reportError(fmt.Errorf("read frame data: %w", err))
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
			lengthPrefix := make([]byte, 4)
			binary.BigEndian.PutUint32(lengthPrefix, uint32(len(data)))

			if _, err := e.stream.Write(lengthPrefix); err != nil {
				e.reportError(fmt.Errorf("write length prefix: %w", err))
				return
			}
			if _, err := e.stream.Write(data); err != nil {
				e.reportError(fmt.Errorf("write frame data: %w", err))
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
