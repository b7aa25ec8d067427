package mpd

import (
	"context"
	"fmt"

	"github.com/pior/mpd/wire"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ServerPool wraps a pool, a circuit breaker with its server address.
type ServerPool struct {
	addr           string
	pool           Pool
	circuitBreaker *CircuitBreaker // nil if not configured
	logger         *zap.Logger
}

func newServerPool(addr string, config Config) (*ServerPool, error) {
	constructor := config.constructor
	if constructor == nil {
		constructor = func(ctx context.Context) (*Session, error) {
			conn, err := Dial(ctx, config.Dialer, addr)
			if err != nil {
				return nil, err
			}
			return NewSession(ctx, conn, config.Session)
		}
	}

	pool, err := config.Pool(constructor, config.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("mpd: creating pool for %s: %w", addr, err)
	}

	sp := &ServerPool{
		addr:   addr,
		pool:   pool,
		logger: config.Logger.With(zap.String("addr", addr)),
	}
	if config.NewCircuitBreaker != nil {
		sp.circuitBreaker = config.NewCircuitBreaker(addr)
	}
	return sp, nil
}

func (sp *ServerPool) Address() string {
	return sp.addr
}

// ServerPoolStats contains stats for a single server pool
type ServerPoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (sp *ServerPool) Stats() ServerPoolStats {
	stats := ServerPoolStats{
		Addr:      sp.addr,
		PoolStats: sp.pool.Stats(),
	}
	if sp.circuitBreaker != nil {
		stats.CircuitBreakerState = sp.circuitBreaker.State()
		stats.CircuitBreakerCounts = sp.circuitBreaker.Counts()
	}
	return stats
}

// Execute runs one command on a pooled session, through the server's circuit
// breaker when one is configured.
func (sp *ServerPool) Execute(ctx context.Context, command string, mode ReadMode) (*wire.Response, error) {
	if sp.circuitBreaker == nil {
		return sp.execute(ctx, command, mode)
	}

	return sp.circuitBreaker.Execute(func() (*wire.Response, error) {
		return sp.execute(ctx, command, mode)
	})
}

// execute acquires a session, sends the command and gives the session back,
// or destroys it when the error left the stream in an unknown state.
func (sp *ServerPool) execute(ctx context.Context, command string, mode ReadMode) (*wire.Response, error) {
	resource, err := sp.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := resource.Value().Execute(ctx, command, mode)
	if err != nil {
		if wire.ShouldCloseConnection(err) || resource.Value().IsClosed() {
			sp.logger.Debug("destroying session", zap.Error(err))
			resource.Destroy()
		} else {
			resource.Release()
		}
		return nil, err
	}

	resource.Release()
	return resp, nil
}

func (sp *ServerPool) Close() {
	sp.pool.Close()
}
