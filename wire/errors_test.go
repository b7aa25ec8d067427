package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "ack", err: &AckError{Code: AckUnknown}, expected: false},
		{name: "wrapped ack", err: fmt.Errorf("play: %w", &AckError{Code: AckNoExist}), expected: false},
		{name: "connection error", err: &ConnectionError{Op: "read", Err: io.ErrUnexpectedEOF}, expected: true},
		{name: "parse error", err: &ParseError{Message: "bad greeting"}, expected: true},
		{name: "connection closed", err: ErrConnectionClosed, expected: true},
		{name: "context canceled", err: context.Canceled, expected: true},
		{name: "unknown", err: errors.New("unknown"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldCloseConnection(tt.err))
		})
	}
}

func TestConnectionError(t *testing.T) {
	err := &ConnectionError{Op: "write", Err: io.ErrClosedPipe}
	assert.Equal(t, "mpd: connection error during write: io: read/write on closed pipe", err.Error())
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestParseError(t *testing.T) {
	assert.Equal(t, "mpd: parse error: bad", (&ParseError{Message: "bad"}).Error())

	err := &ParseError{Message: "bad", Err: io.EOF}
	assert.Equal(t, "mpd: parse error: bad: EOF", err.Error())
	assert.ErrorIs(t, err, io.EOF)
}
