package wire

// Status tells how an accumulation pass ended.
type Status uint8

const (
	// StatusNone is used for immediate reads, which skip terminator analysis.
	StatusNone Status = iota
	// StatusOK means the last chunk ended with SuccessTerminator.
	StatusOK
	// StatusAck means the last chunk contained ErrorTerminator.
	StatusAck
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAck:
		return "ack"
	default:
		return "none"
	}
}

// Response is one complete server reply.
// Data holds every byte received during the pass, terminator included.
type Response struct {
	Status Status
	Data   []byte
}

// IsOK returns true if the reply ended with SuccessTerminator.
func (r *Response) IsOK() bool {
	return r.Status == StatusOK
}

// IsAck returns true if the server reported an error.
func (r *Response) IsAck() bool {
	return r.Status == StatusAck
}

// Text returns the reply as UTF-8 text.
func (r *Response) Text() string {
	return string(r.Data)
}

// Err returns the parsed *AckError for ACK replies, nil otherwise.
func (r *Response) Err() error {
	if r.Status != StatusAck {
		return nil
	}
	if ack, ok := ParseAck(r.Data); ok {
		return ack
	}
	return &AckError{Message: string(r.Data)}
}
