package mpd

import "errors"

// ErrNoServers is returned when a Servers list is empty.
var ErrNoServers = errors.New("mpd: no servers available")

// Servers provides the list of server addresses ("host:port").
type Servers interface {
	List() []string
}

type staticServers struct {
	addrs []string
}

// NewStaticServers returns a fixed list of servers.
func NewStaticServers(addrs ...string) Servers {
	return &staticServers{addrs: addrs}
}

func (s *staticServers) List() []string {
	return s.addrs
}
