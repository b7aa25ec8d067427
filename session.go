package mpd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pior/mpd/internal"
	"github.com/pior/mpd/wire"
	"go.uber.org/zap"
)

// DefaultImmediateWait bounds how long an immediate read waits for the
// first byte of a reply.
const DefaultImmediateWait = 50 * time.Millisecond

// aLongTimeAgo is a deadline in the past, used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

var responseBuffers = internal.NewByteBufferPool(wire.DefaultChunkSize)

// ReadMode selects how a reply is read after the command is written.
type ReadMode uint8

const (
	// ReadFramed reads until the reply ends with "OK\n" or carries an ACK.
	ReadFramed ReadMode = iota

	// ReadImmediate issues a single bounded read and returns whatever it
	// delivered, possibly nothing. Use it for commands whose reply may be
	// empty, like "noidle" on a connection that is not idling. A reply
	// larger than the buffer or arriving late is truncated or left in the
	// stream.
	ReadImmediate
)

func (m ReadMode) String() string {
	if m == ReadImmediate {
		return "immediate"
	}
	return "framed"
}

// SessionConfig holds the options of a Session. The zero value is usable.
type SessionConfig struct {
	// ChunkSize is the scratch buffer size of framed reads.
	// Zero means wire.DefaultChunkSize.
	ChunkSize int

	// ImmediateReadSize is the buffer size of immediate reads.
	// Zero means wire.DefaultImmediateReadSize.
	ImmediateReadSize int

	// ImmediateWait bounds how long an immediate read waits for data; when
	// it elapses the read returns an empty payload.
	// Zero means DefaultImmediateWait. Negative waits until data arrives.
	ImmediateWait time.Duration

	// Match selects terminator matching. The zero value is wire.MatchChunk.
	Match wire.MatchStrategy

	// Timeout is applied to commands whose context has no deadline.
	// Zero means no timeout: a server that never completes a reply blocks
	// the caller until the context is cancelled.
	Timeout time.Duration

	// ReadGreeting consumes the "OK MPD <version>" line when the session
	// is created. Leave it off only for servers that do not send one.
	ReadGreeting bool

	// Logger receives debug entries for every command.
	// If nil, logging is disabled.
	Logger *zap.Logger
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = wire.DefaultChunkSize
	}
	if c.ImmediateReadSize <= 0 {
		c.ImmediateReadSize = wire.DefaultImmediateReadSize
	}
	if c.ImmediateWait == 0 {
		c.ImmediateWait = DefaultImmediateWait
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Session sends commands over one Connection and reads their replies.
//
// A Session handles one command at a time and is not safe for concurrent
// use: interleaved commands would corrupt framing. Use a Client, or one
// Session per goroutine, for concurrency.
type Session struct {
	conn      *Connection
	acc       *wire.Accumulator
	immediate []byte
	config    SessionConfig
	version   string
	logger    *zap.Logger
}

// Connect dials host:port and returns a Session over the new connection.
func Connect(ctx context.Context, host string, port int, config SessionConfig) (*Session, error) {
	conn, err := Dial(ctx, nil, net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, conn, config)
}

// NewSession takes ownership of conn. If config.ReadGreeting is set, the
// greeting is read first; on failure conn is closed.
func NewSession(ctx context.Context, conn *Connection, config SessionConfig) (*Session, error) {
	config = config.withDefaults()

	s := &Session{
		conn:      conn,
		acc:       wire.NewAccumulator(config.ChunkSize, config.Match),
		immediate: make([]byte, config.ImmediateReadSize),
		config:    config,
		logger:    config.Logger.With(zap.String("conn_id", conn.ID()), zap.String("addr", conn.Addr())),
	}

	if config.ReadGreeting {
		if err := s.readGreeting(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	s.logger.Debug("session opened", zap.String("version", s.version))
	return s, nil
}

func (s *Session) readGreeting(ctx context.Context) error {
	stop := s.applyDeadline(ctx)
	defer stop()

	version, err := wire.ReadGreeting(s.conn)
	if err != nil {
		return s.contextError(ctx, err)
	}
	s.version = version
	return nil
}

// SendCommand writes command and returns the reply as text.
// See Execute.
func (s *Session) SendCommand(ctx context.Context, command string, mode ReadMode) (string, error) {
	resp, err := s.Execute(ctx, command, mode)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// SendBinaryCommand writes command and returns the raw reply.
// See Execute.
func (s *Session) SendBinaryCommand(ctx context.Context, command string, mode ReadMode) ([]byte, error) {
	resp, err := s.Execute(ctx, command, mode)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Execute writes command as-is (the caller supplies the trailing newline)
// and reads the reply according to mode.
//
// An ACK reply is a successful call: the returned Response has StatusAck and
// holds the error line. Use Response.Err to get an *AckError.
//
// Errors are *ConnectionError, ErrConnectionClosed, ErrNotConnected or
// context errors. Any of them closes the connection, since the rest of the
// reply may still be in flight; later calls fail with ErrNotConnected.
//
// The context deadline (or SessionConfig.Timeout) bounds the whole call.
// Without either, a server that never terminates its reply and never closes
// the connection blocks the call forever.
func (s *Session) Execute(ctx context.Context, command string, mode ReadMode) (*wire.Response, error) {
	if s.conn.IsClosed() {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	stop := s.applyDeadline(ctx)
	defer stop()

	if _, err := s.conn.Write([]byte(command)); err != nil {
		return nil, s.fail(ctx, command, err)
	}

	var resp *wire.Response
	var err error
	switch mode {
	case ReadImmediate:
		resp, err = s.readImmediate(ctx)
	default:
		resp, err = s.readFramed()
	}
	if err != nil {
		return nil, s.fail(ctx, command, err)
	}

	s.logger.Debug("command",
		zap.String("command", commandName(command)),
		zap.Stringer("mode", mode),
		zap.Stringer("status", resp.Status),
		zap.Int("bytes", len(resp.Data)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *Session) readFramed() (*wire.Response, error) {
	buf := responseBuffers.Get()
	defer responseBuffers.Put(buf)

	status, err := s.acc.Accumulate(s.conn, buf)
	if err != nil {
		return nil, err
	}
	return &wire.Response{Status: status, Data: bytes.Clone(buf.Bytes())}, nil
}

func (s *Session) readImmediate(ctx context.Context) (*wire.Response, error) {
	waiting := false
	if s.config.ImmediateWait > 0 {
		wait := time.Now().Add(s.config.ImmediateWait)
		if deadline, ok := s.deadline(ctx); !ok || wait.Before(deadline) {
			_ = s.conn.SetReadDeadline(wait)
			waiting = true
		}
	}

	data, err := wire.ReadImmediate(s.conn, s.immediate)
	if err != nil {
		// Nothing arrived within ImmediateWait: an empty reply, not a failure.
		if !waiting || ctx.Err() != nil || !errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, err
		}
		data = s.immediate[:0]
	}
	return &wire.Response{Status: wire.StatusNone, Data: bytes.Clone(data)}, nil
}

// Close closes the underlying connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.conn.IsClosed() {
		return nil
	}
	s.logger.Debug("session closed")
	return s.conn.Close()
}

// IsClosed returns whether the session can no longer be used
func (s *Session) IsClosed() bool {
	return s.conn.IsClosed()
}

// ProtocolVersion returns the version announced in the greeting, or an
// empty string if the greeting was not read.
func (s *Session) ProtocolVersion() string {
	return s.version
}

// ID returns the identifier of the underlying connection
func (s *Session) ID() string {
	return s.conn.ID()
}

// Addr returns the server address
func (s *Session) Addr() string {
	return s.conn.Addr()
}

// LastUsed returns when the session last moved bytes
func (s *Session) LastUsed() time.Time {
	return s.conn.LastUsed()
}

// deadline returns the deadline of the current call.
func (s *Session) deadline(ctx context.Context) (time.Time, bool) {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline, true
	}
	if s.config.Timeout > 0 {
		return time.Now().Add(s.config.Timeout), true
	}
	return time.Time{}, false
}

// applyDeadline sets the socket deadline for the current call, clearing the
// one left by the previous call, and unblocks pending I/O when ctx is
// cancelled. The returned func must be called when the call ends; once it
// returns, a cancellation of ctx no longer touches the socket.
func (s *Session) applyDeadline(ctx context.Context) func() {
	deadline, _ := s.deadline(ctx)
	_ = s.conn.SetDeadline(deadline)

	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(done)
		_ = s.conn.SetDeadline(aLongTimeAgo)
	})
	return func() {
		if !stop() {
			// The callback started: wait for it, then drop its past deadline
			// so it cannot leak into the next call.
			<-done
			_ = s.conn.SetDeadline(time.Time{})
		}
	}
}

// fail closes the connection and returns err, annotated with the context
// error when the context ended the call.
func (s *Session) fail(ctx context.Context, command string, err error) error {
	err = s.contextError(ctx, err)
	s.logger.Debug("command failed",
		zap.String("command", commandName(command)),
		zap.Error(err),
	)
	if wire.ShouldCloseConnection(err) {
		_ = s.conn.Close()
	}
	return err
}

func (s *Session) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// commandName returns the verb of a command, keeping arguments (passwords,
// paths) out of the logs.
func commandName(command string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	return name
}
