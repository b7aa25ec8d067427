// Package wire implements response framing for the MPD text protocol.
//
// MPD replies are a sequence of lines. A successful reply ends with "OK\n";
// a failed one carries an "ACK [code@index] {command} message" line. The
// server gives no length prefix, so the client has to read until it sees
// one of these terminators. This package does exactly that over any
// io.Reader, without connection management or command knowledge.
//
// # Framed reads
//
// An Accumulator reads fixed-size chunks and appends them to a buffer until
// a chunk ends with SuccessTerminator or contains ErrorTerminator:
//
//	acc := wire.NewAccumulator(wire.DefaultChunkSize, wire.MatchChunk)
//	var buf bytes.Buffer
//	status, err := acc.Accumulate(conn, &buf)
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//
// Reaching EOF before a terminator is an error (ErrConnectionClosed), never
// a short reply.
//
// By default terminators are searched in the latest chunk only (MatchChunk).
// MatchBuffer also catches a terminator split across two reads.
//
// # Immediate reads
//
// ReadImmediate issues one bounded read and returns whatever arrived. It is
// meant for commands whose reply may be empty, such as "noidle" sent to a
// connection that is not idling.
//
// # Errors
//
//   - ConnectionError: network/I/O error, CLOSE connection
//   - ErrConnectionClosed: peer closed mid-reply, CLOSE connection
//   - ParseError: unexpected greeting, CLOSE connection
//   - AckError: server rejected the command, connection can be REUSED
//
// ACK replies are complete replies: Accumulate returns StatusAck and a nil
// error. Use Response.Err or ParseAck to turn them into an *AckError.
//
// # Thread Safety
//
// Accumulator is not thread-safe. Helper functions are.
package wire
