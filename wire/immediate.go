package wire

import (
	"errors"
	"io"
)

// ReadImmediate issues exactly one Read into buf and returns the bytes it
// delivered, without looking for terminators. The result aliases buf.
//
// A reply longer than buf, or one that arrives in several segments, is
// truncated; the remaining bytes stay in the stream. EOF with no data is
// reported as ErrConnectionClosed.
func ReadImmediate(r io.Reader, buf []byte) ([]byte, error) {
	n, err := r.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n > 0 {
				return buf[:n], nil
			}
			return nil, ErrConnectionClosed
		}
		return nil, err
	}
	return buf[:n], nil
}
