package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pior/mpd/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGreeting(t *testing.T) {
	version, err := ReadGreeting(testutils.NewConnectionMock("OK MPD 0.23.5\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.23.5", version)
}

func TestReadGreeting_Split(t *testing.T) {
	version, err := ReadGreeting(testutils.NewConnectionMock("OK M", "PD 0.24", ".0\n"))
	require.NoError(t, err)
	assert.Equal(t, "0.24.0", version)
}

func TestReadGreeting_LeavesReplyInStream(t *testing.T) {
	mock := testutils.NewConnectionMock("OK MPD 0.23.5\nvolume: 50\nOK\n")

	_, err := ReadGreeting(mock)
	require.NoError(t, err)

	var buf bytes.Buffer
	status, err := NewAccumulator(0, MatchChunk).Accumulate(mock, &buf)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, "volume: 50\nOK\n", buf.String())
}

func TestReadGreeting_Errors(t *testing.T) {
	_, err := ReadGreeting(testutils.NewConnectionMock())
	require.ErrorIs(t, err, ErrConnectionClosed)

	_, err = ReadGreeting(testutils.NewConnectionMock("OK MPD 0.2"))
	require.ErrorIs(t, err, ErrConnectionClosed)

	_, err = ReadGreeting(testutils.NewConnectionMock("HELLO\n"))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.True(t, ShouldCloseConnection(err))

	_, err = ReadGreeting(testutils.NewConnectionMock(strings.Repeat("x", MaxGreetingLength+1)))
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "greeting too long", parseErr.Message)
}
