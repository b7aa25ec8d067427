package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// ParseAck extracts the error line from an ACK reply.
//
// Line format: ACK [<code>@<index>] {<command>} <message>\n
//
// Fields that are missing or malformed are left at their zero value; the
// rest of the line always ends up in Message. Returns false when data does
// not contain ErrorTerminator.
func ParseAck(data []byte) (*AckError, bool) {
	i := bytes.Index(data, errorTerminator)
	if i < 0 {
		return nil, false
	}

	line := data[i+len(errorTerminator):]
	if end := bytes.IndexByte(line, '\n'); end >= 0 {
		line = line[:end]
	}

	ack := &AckError{}
	rest := string(line)

	if strings.HasPrefix(rest, "[") {
		if end := strings.IndexByte(rest, ']'); end > 0 {
			codeStr, indexStr, _ := strings.Cut(rest[1:end], "@")
			if code, err := strconv.Atoi(codeStr); err == nil {
				ack.Code = AckCode(code)
			}
			if index, err := strconv.Atoi(indexStr); err == nil {
				ack.Index = index
			}
			rest = strings.TrimPrefix(rest[end+1:], " ")
		}
	}

	if strings.HasPrefix(rest, "{") {
		if end := strings.IndexByte(rest, '}'); end > 0 {
			ack.Command = rest[1:end]
			rest = strings.TrimPrefix(rest[end+1:], " ")
		}
	}

	ack.Message = rest
	return ack, true
}
