package wire

import (
	"bytes"
	"errors"
	"io"
)

// MatchStrategy selects which bytes are inspected for terminators after
// each read.
type MatchStrategy uint8

const (
	// MatchChunk inspects only the bytes delivered by the latest read.
	// A terminator split across two reads (e.g. "O" then "K\n") is never
	// detected and the pass waits until the server sends more or closes.
	MatchChunk MatchStrategy = iota

	// MatchBuffer inspects the tail of the accumulated buffer, so a
	// terminator split across reads is still detected.
	MatchBuffer
)

func (m MatchStrategy) String() string {
	if m == MatchBuffer {
		return "buffer"
	}
	return "chunk"
}

// Accumulator turns a sequence of partial reads into one complete reply.
//
// The scratch buffer is reused between passes, so an Accumulator must not be
// used by several goroutines at once.
type Accumulator struct {
	scratch []byte
	match   MatchStrategy
}

// NewAccumulator returns an Accumulator reading chunkSize bytes at a time.
// A chunkSize <= 0 selects DefaultChunkSize.
func NewAccumulator(chunkSize int, match MatchStrategy) *Accumulator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Accumulator{
		scratch: make([]byte, chunkSize),
		match:   match,
	}
}

// Accumulate reads from r and appends every delivered chunk to dst until a
// chunk ends with SuccessTerminator or contains ErrorTerminator.
//
// Returns ErrConnectionClosed if r reaches EOF first; dst then holds the
// partial reply and must be discarded. Other read errors are returned
// unchanged. There is no limit on reply size and no timeout: a peer that
// neither terminates the reply nor closes the stream blocks the call, unless
// r enforces a deadline.
func (a *Accumulator) Accumulate(r io.Reader, dst *bytes.Buffer) (Status, error) {
	empty := 0
	for {
		n, err := r.Read(a.scratch)
		if n > 0 {
			empty = 0
			start := dst.Len()
			dst.Write(a.scratch[:n])
			if status := a.detect(dst.Bytes(), start); status != StatusNone {
				return status, nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return StatusNone, ErrConnectionClosed
			}
			return StatusNone, err
		}

		if n == 0 {
			empty++
			if empty >= maxConsecutiveEmptyReads {
				return StatusNone, io.ErrNoProgress
			}
		}
	}
}

// detect checks for terminators, success first. buf is the accumulated reply
// and start the offset of the latest chunk in it.
func (a *Accumulator) detect(buf []byte, start int) Status {
	if a.match == MatchBuffer {
		if bytes.HasSuffix(buf, successTerminator) {
			return StatusOK
		}
		// Back off so that an ErrorTerminator starting in the previous
		// chunk is found.
		from := max(0, start-(len(errorTerminator)-1))
		if bytes.Contains(buf[from:], errorTerminator) {
			return StatusAck
		}
		return StatusNone
	}

	chunk := buf[start:]
	if bytes.HasSuffix(chunk, successTerminator) {
		return StatusOK
	}
	if bytes.Contains(chunk, errorTerminator) {
		return StatusAck
	}
	return StatusNone
}

// ReadResponse runs one accumulation pass over r with a fresh Accumulator
// using DefaultChunkSize and MatchChunk.
func ReadResponse(r io.Reader) (*Response, error) {
	var buf bytes.Buffer
	status, err := NewAccumulator(DefaultChunkSize, MatchChunk).Accumulate(r, &buf)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Data: buf.Bytes()}, nil
}
