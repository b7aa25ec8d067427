package mpd

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testGreeting = "OK MPD 0.23.5\n"

// hangUp in a reply script closes the connection instead of writing.
const hangUp = "\x00hang up"

func createListener(t testing.TB, handler func(conn net.Conn)) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var wg sync.WaitGroup
	t.Cleanup(func() {
		listener.Close()
		wg.Wait()
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			wg.Add(1)
			go func(c net.Conn) {
				defer wg.Done()
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// fakeMPD answers each command line with its scripted chunks, written with a
// pause in between so that they reach the client as separate reads.
// Commands without a script get an "unknown command" ACK; commands scripted
// with no chunks get no reply at all.
type fakeMPD struct {
	greeting string
	replies  map[string][]string

	mu       sync.Mutex
	received []string
}

func newFakeMPD(replies map[string][]string) *fakeMPD {
	if replies == nil {
		replies = map[string][]string{}
	}
	if _, ok := replies["ping"]; !ok {
		replies["ping"] = []string{"OK\n"}
	}
	return &fakeMPD{greeting: testGreeting, replies: replies}
}

func (f *fakeMPD) serve(conn net.Conn) {
	if f.greeting != "" {
		if _, err := conn.Write([]byte(f.greeting)); err != nil {
			return
		}
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.TrimSuffix(line, "\n")

		f.mu.Lock()
		f.received = append(f.received, command)
		f.mu.Unlock()

		chunks, ok := f.replies[command]
		if !ok {
			name, _, _ := strings.Cut(command, " ")
			chunks = []string{fmt.Sprintf("ACK [5@0] {%s} unknown command \"%s\"\n", name, name)}
		}

		for i, chunk := range chunks {
			if chunk == hangUp {
				return
			}
			if i > 0 {
				time.Sleep(5 * time.Millisecond)
			}
			if _, err := conn.Write([]byte(chunk)); err != nil {
				return
			}
		}
	}
}

func (f *fakeMPD) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

// start serves f on a new listener and returns its address.
func (f *fakeMPD) start(t testing.TB) string {
	return createListener(t, f.serve)
}

func splitAddr(t testing.TB, addr string) (string, int) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	var p int
	_, err = fmt.Sscan(port, &p)
	require.NoError(t, err)
	return host, p
}
