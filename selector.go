package mpd

import (
	"github.com/pior/mpd/internal"
	"github.com/zeebo/xxh3"
)

// SelectServerFunc picks the server for a routing key among servers.
//
// A routing key names what a command is about, such as a room or an output
// handled by its own daemon. Commands with the same key reach the same server.
type SelectServerFunc func(key string, servers []string) (string, error)

// DefaultSelectServer hashes key with xxh3 and maps it to a server with Jump
// Hash, which moves few keys when a server is added. A single server is
// returned directly.
func DefaultSelectServer(key string, servers []string) (string, error) {
	switch len(servers) {
	case 0:
		return "", ErrNoServers
	case 1:
		return servers[0], nil
	}

	return servers[internal.JumpHash(xxh3.HashString(key), len(servers))], nil
}
