package wire

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// ReadGreeting consumes the line the server sends after accept and returns
// the protocol version it announces.
//
// Line format: OK MPD <version>\n
//
// Reads one byte at a time so that nothing past the newline is consumed.
func ReadGreeting(r io.Reader) (string, error) {
	var line bytes.Buffer
	b := make([]byte, 1)
	empty := 0

	for {
		n, err := r.Read(b)
		if n == 1 {
			empty = 0
			if b[0] == '\n' {
				break
			}
			line.WriteByte(b[0])
			if line.Len() > MaxGreetingLength {
				return "", &ParseError{Message: "greeting too long"}
			}
			continue
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrConnectionClosed
			}
			return "", err
		}

		empty++
		if empty >= maxConsecutiveEmptyReads {
			return "", io.ErrNoProgress
		}
	}

	version, ok := strings.CutPrefix(line.String(), GreetingPrefix)
	if !ok {
		return "", &ParseError{Message: "unexpected greeting: " + line.String()}
	}
	return strings.TrimSpace(version), nil
}
