package testutils

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// ConnectionMock is a mock implementation of net.Conn for testing.
// Each Read delivers at most one scripted chunk, so tests control exactly how
// a reply is split across reads. Once the chunks are exhausted Read returns
// the configured error (io.EOF by default).
type ConnectionMock struct {
	mu       sync.Mutex
	chunks   [][]byte
	readErr  error
	writeBuf bytes.Buffer
	reads    int
	closed   bool
}

// NewConnectionMock creates a new mock connection delivering the given chunks
func NewConnectionMock(chunks ...string) *ConnectionMock {
	m := &ConnectionMock{readErr: io.EOF}
	for _, c := range chunks {
		m.chunks = append(m.chunks, []byte(c))
	}
	return m
}

// WithReadError sets the error returned once all chunks have been delivered
func (m *ConnectionMock) WithReadError(err error) *ConnectionMock {
	m.readErr = err
	return m
}

func (m *ConnectionMock) Read(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	m.reads++
	if len(m.chunks) == 0 {
		return 0, m.readErr
	}

	chunk := m.chunks[0]
	n = copy(b, chunk)
	if n < len(chunk) {
		m.chunks[0] = chunk[n:]
	} else {
		m.chunks = m.chunks[1:]
	}
	return n, nil
}

func (m *ConnectionMock) Write(b []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns everything written to the connection so far
func (m *ConnectionMock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// Reads returns the number of Read calls that reached the mock
func (m *ConnectionMock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Closed reports whether Close was called
func (m *ConnectionMock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6600}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }
