package mpd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pior/mpd/wire"
	"go.uber.org/zap"
)

// PingCommand is sent by Client.Ping and by health checks.
const PingCommand = "ping\n"

// Config holds configuration for the client session pools.
type Config struct {
	// MaxSize is the maximum number of sessions per server.
	// Zero means 1.
	MaxSize int32

	// Timeout bounds each command whose context has no deadline.
	// It overrides Session.Timeout when set. Zero means no timeout.
	Timeout time.Duration

	// MaxConnLifetime is the maximum duration a session can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a session can be idle before being closed.
	// MPD closes idle clients after connection_timeout (60s by default), keep it below that.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often to check idle sessions for health.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Pool is the session pool factory function.
	// If nil, uses NewChannelPool. NewPuddlePool is the alternative.
	Pool PoolFactory

	// SelectServer picks which server handles a routing key.
	// If nil, uses DefaultSelectServer.
	SelectServer SelectServerFunc

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address when the pool is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) *CircuitBreaker

	// Session configures every session created by the pools.
	Session SessionConfig

	// SkipGreeting disables reading the "OK MPD <version>" greeting on connect.
	SkipGreeting bool

	// Logger is used by the client, and by sessions unless Session.Logger is set.
	// If nil, logging is disabled.
	Logger *zap.Logger

	// for testing purposes only
	constructor func(ctx context.Context) (*Session, error)
}

func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = 1
	}
	if c.Pool == nil {
		c.Pool = NewChannelPool
	}
	if c.SelectServer == nil {
		c.SelectServer = DefaultSelectServer
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Session.Logger == nil {
		c.Session.Logger = c.Logger
	}
	if c.Timeout > 0 {
		c.Session.Timeout = c.Timeout
	}
	c.Session.ReadGreeting = !c.SkipGreeting
	return c
}

// Request is a command to send through a Client.
type Request struct {
	// Command is written as-is and must end with a newline.
	Command string

	// Mode selects how the reply is read.
	Mode ReadMode

	// Key routes the command to a server. Commands with an empty key go to
	// the server selected for the empty string.
	Key string
}

// Client sends commands to one or more MPD servers over pooled sessions.
// It is safe for concurrent use; each command holds a session for its
// duration.
type Client struct {
	servers Servers
	config  Config

	mu     sync.RWMutex
	pools  map[string]*ServerPool
	closed bool

	// Health check management
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}

	stats clientStatsCollector
}

// NewClient creates a new client with the given servers and configuration.
// For a single server, use: NewClient(NewStaticServers("host:6600"), config)
func NewClient(servers Servers, config Config) (*Client, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	client := &Client{
		servers:         servers,
		config:          config.withDefaults(),
		pools:           make(map[string]*ServerPool),
		stopHealthCheck: make(chan struct{}),
		healthCheckDone: make(chan struct{}),
	}

	// Start health check goroutine if enabled
	if client.config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	} else {
		close(client.healthCheckDone)
	}

	return client, nil
}

// Do sends req.Command to the server selected for req.Key and returns the
// reply. ACK replies are returned as responses, not errors.
func (c *Client) Do(ctx context.Context, req *Request) (*wire.Response, error) {
	c.stats.recordCommand(req.Mode)

	sp, err := c.poolForKey(req.Key)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	resp, err := sp.Execute(ctx, req.Command, req.Mode)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	c.stats.recordReply(resp.IsAck(), len(resp.Data))
	return resp, nil
}

// SendCommand sends command to the default server and returns the reply as text.
func (c *Client) SendCommand(ctx context.Context, command string, mode ReadMode) (string, error) {
	resp, err := c.Do(ctx, &Request{Command: command, Mode: mode})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// SendBinaryCommand sends command to the default server and returns the raw reply.
func (c *Client) SendBinaryCommand(ctx context.Context, command string, mode ReadMode) ([]byte, error) {
	resp, err := c.Do(ctx, &Request{Command: command, Mode: mode})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Run sends a framed command to the default server and returns its reply
// text. An ACK reply is returned as an *wire.AckError.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	resp, err := c.Do(ctx, &Request{Command: command, Mode: ReadFramed})
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Ping sends "ping" to every server and returns the joined errors.
func (c *Client) Ping(ctx context.Context) error {
	var errs []error
	for _, addr := range c.servers.List() {
		sp, err := c.getOrCreatePool(addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		resp, err := sp.Execute(ctx, PingCommand, ReadFramed)
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("mpd: ping %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops health checks and closes all pools. Sessions in use are
// closed when they are released.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stopHealthCheck)

	pools := c.pools
	c.pools = make(map[string]*ServerPool)
	c.mu.Unlock()

	<-c.healthCheckDone

	for _, sp := range pools {
		sp.Close()
	}
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// AllPoolStats returns stats for all server pools
func (c *Client) AllPoolStats() []ServerPoolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]ServerPoolStats, 0, len(c.pools))
	for _, sp := range c.pools {
		stats = append(stats, sp.Stats())
	}
	return stats
}

func (c *Client) poolForKey(key string) (*ServerPool, error) {
	addr, err := c.config.SelectServer(key, c.servers.List())
	if err != nil {
		return nil, err
	}
	return c.getOrCreatePool(addr)
}

// getOrCreatePool gets or creates a pool for the given server address.
func (c *Client) getOrCreatePool(addr string) (*ServerPool, error) {
	// Fast path: read lock
	c.mu.RLock()
	sp, exists := c.pools[addr]
	closed := c.closed
	c.mu.RUnlock()
	if exists {
		return sp, nil
	}
	if closed {
		return nil, ErrPoolClosed
	}

	// Slow path: write lock and create
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrPoolClosed
	}
	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	sp, err := newServerPool(addr, c.config)
	if err != nil {
		return nil, err
	}
	c.pools[addr] = sp
	return sp, nil
}

// healthCheckLoop periodically checks idle sessions for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	defer close(c.healthCheckDone)

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

// checkAllPools runs health checks on all existing pools
func (c *Client) checkAllPools() {
	c.mu.RLock()
	pools := make([]*ServerPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	c.mu.RUnlock()

	for _, sp := range pools {
		c.checkPoolSessions(sp)
	}
}

// checkPoolSessions checks all idle sessions in a pool and destroys those
// that are stale or unhealthy.
func (c *Client) checkPoolSessions(sp *ServerPool) {
	now := time.Now()

	for _, res := range sp.pool.AcquireAllIdle() {
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			sp.logger.Debug("session expired", zap.String("conn_id", res.Value().ID()))
			res.Destroy()
			continue
		}

		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			sp.logger.Debug("session idle", zap.String("conn_id", res.Value().ID()))
			res.Destroy()
			continue
		}

		if err := c.healthCheck(res.Value()); err != nil {
			sp.logger.Info("health check failed", zap.String("conn_id", res.Value().ID()), zap.Error(err))
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// healthCheck pings a session and expects "OK\n".
func (c *Client) healthCheck(s *Session) error {
	timeout := c.config.HealthCheckInterval
	if c.config.Timeout > 0 && c.config.Timeout < timeout {
		timeout = c.config.Timeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := s.Execute(ctx, PingCommand, ReadFramed)
	if err != nil {
		return err
	}

	if resp.Status != wire.StatusOK {
		return fmt.Errorf("mpd: health check failed: %s", resp.Status)
	}
	return nil
}
