package wire

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrConnectionClosed is returned when the peer ends the stream before a
// terminator was seen. The connection must not be reused.
var ErrConnectionClosed = errors.New("mpd: connection closed by server")

// ConnectionError wraps underlying I/O errors from connection operations.
// Used to distinguish network/connection issues from protocol errors.
//
// Common causes:
//   - Dial or name resolution failure
//   - Connection reset, broken pipe
//   - Deadline exceeded
//
// Connection handling: Connection is already broken, CLOSE it
type ConnectionError struct {
	Op  string // Operation that failed (dial, read, write)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mpd: connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// AckCode is the numeric error code carried by an ACK line.
type AckCode int

// Error codes defined by MPD (src/protocol/Ack.hxx).
const (
	AckNotList       AckCode = 1
	AckArg           AckCode = 2
	AckPassword      AckCode = 3
	AckPermission    AckCode = 4
	AckUnknown       AckCode = 5
	AckNoExist       AckCode = 50
	AckPlaylistMax   AckCode = 51
	AckSystem        AckCode = 52
	AckPlaylistLoad  AckCode = 53
	AckUpdateAlready AckCode = 54
	AckPlayerSync    AckCode = 55
	AckExist         AckCode = 56
)

func (c AckCode) String() string {
	switch c {
	case AckNotList:
		return "not_list"
	case AckArg:
		return "arg"
	case AckPassword:
		return "password"
	case AckPermission:
		return "permission"
	case AckUnknown:
		return "unknown"
	case AckNoExist:
		return "no_exist"
	case AckPlaylistMax:
		return "playlist_max"
	case AckSystem:
		return "system"
	case AckPlaylistLoad:
		return "playlist_load"
	case AckUpdateAlready:
		return "update_already"
	case AckPlayerSync:
		return "player_sync"
	case AckExist:
		return "exist"
	default:
		return strconv.Itoa(int(c))
	}
}

// AckError is the parsed form of an ACK reply.
// The server rejected the command but the protocol state is intact.
//
// Connection handling: Connection can be REUSED
type AckError struct {
	Code    AckCode
	Index   int    // Position of the failing command inside a command list
	Command string // Name of the failing command, empty for unknown commands
	Message string
}

func (e *AckError) Error() string {
	return fmt.Sprintf("mpd: ACK [%d@%d] {%s} %s", int(e.Code), e.Index, e.Command, e.Message)
}

// ShouldCloseConnection returns false - the server answered with a complete reply
func (e *AckError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection in an
// unknown state.
//
// Returns true for:
//   - ConnectionError
//   - ErrConnectionClosed
//   - unknown errors (including context errors, the reply may still be in flight)
//
// Returns false for:
//   - AckError
//   - nil
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

// ParseError represents a client-side parsing failure, for example a
// greeting line that does not come from an MPD server.
//
// Connection handling: Connection should be CLOSED as state is uncertain
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "mpd: parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "mpd: parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}
