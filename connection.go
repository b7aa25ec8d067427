package mpd

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pior/mpd/internal/coarsetime"
	"github.com/pior/mpd/wire"
)

var (
	// ErrNotConnected is returned by every operation on a closed Connection.
	// No I/O is attempted.
	ErrNotConnected = errors.New("mpd: not connected")

	// ErrConnectionClosed is returned when the server closes the stream
	// before the reply is complete.
	ErrConnectionClosed = wire.ErrConnectionClosed
)

// ConnectionError wraps network errors from dial, read and write.
type ConnectionError = wire.ConnectionError

// Connection is a raw byte transport over one TCP socket. It knows nothing
// about the protocol.
//
// Read, Write and the deadline setters must not be called concurrently with
// each other; Close may be called at any time, from any goroutine, any number
// of times.
type Connection struct {
	id       string
	addr     string
	conn     net.Conn
	closed   atomic.Bool
	lastUsed atomic.Int64
}

// Dial opens a TCP connection to addr. A nil dialer uses the zero net.Dialer.
func Dial(ctx context.Context, dialer *net.Dialer, addr string) (*Connection, error) {
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	return NewConnection(conn), nil
}

// NewConnection takes ownership of an established net.Conn.
func NewConnection(conn net.Conn) *Connection {
	c := &Connection{
		id:   uuid.NewString(),
		addr: conn.RemoteAddr().String(),
		conn: conn,
	}
	c.touch()
	return c
}

// Read reads at most len(p) bytes. It blocks until at least one byte
// arrives, the peer closes the stream (io.EOF) or an error occurs
// (*ConnectionError).
func (c *Connection) Read(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrNotConnected
	}

	n, err := c.conn.Read(p)
	if n > 0 {
		c.touch()
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, c.wrapError("read", err)
	}
	return n, nil
}

// Write writes p to the socket.
func (c *Connection) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrNotConnected
	}

	n, err := c.conn.Write(p)
	if err != nil {
		return n, c.wrapError("write", err)
	}
	c.touch()
	return n, nil
}

// SetDeadline sets the read and write deadline. The zero time clears it.
func (c *Connection) SetDeadline(t time.Time) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline. The zero time clears it.
func (c *Connection) SetReadDeadline(t time.Time) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	return c.conn.SetReadDeadline(t)
}

// Close closes the socket. Only the first call has an effect.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// ID returns a unique identifier used to correlate log entries.
func (c *Connection) ID() string {
	return c.id
}

// Addr returns the remote address
func (c *Connection) Addr() string {
	return c.addr
}

// LastUsed returns when bytes were last moved on the connection
func (c *Connection) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// wrapError reports a socket closed by a concurrent Close as ErrNotConnected.
func (c *Connection) wrapError(op string, err error) error {
	if c.closed.Load() && errors.Is(err, net.ErrClosed) {
		return ErrNotConnected
	}
	return &ConnectionError{Op: op, Err: err}
}

func (c *Connection) touch() {
	c.lastUsed.Store(coarsetime.Now().UnixNano())
}
