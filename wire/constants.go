package wire

// Terminators. Both are matched against the bytes delivered by a single read
// unless the Accumulator is configured with MatchBuffer.
const (
	// SuccessTerminator ends every successful MPD reply.
	//
	// Wire format: <payload lines>*OK\n
	SuccessTerminator = "OK\n"

	// ErrorTerminator starts an MPD error line. The rest of the line carries
	// the error description.
	//
	// Wire format: ACK [<code>@<index>] {<command>} <message>\n
	ErrorTerminator = "ACK "

	// GreetingPrefix starts the line sent by the server right after accept.
	//
	// Wire format: OK MPD <version>\n
	GreetingPrefix = "OK MPD "
)

// Buffer sizes
const (
	// DefaultChunkSize is the scratch buffer size of one framed read.
	DefaultChunkSize = 512

	// DefaultImmediateReadSize is the buffer size of the single read issued
	// in immediate mode.
	DefaultImmediateReadSize = 128

	// MaxGreetingLength bounds the greeting line.
	MaxGreetingLength = 256
)

// maxConsecutiveEmptyReads matches the limit used by bufio.
const maxConsecutiveEmptyReads = 100

var (
	successTerminator = []byte(SuccessTerminator)
	errorTerminator   = []byte(ErrorTerminator)
)
