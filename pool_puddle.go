package mpd

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool creates a pool backed by github.com/jackc/puddle/v2.
func NewPuddlePool(constructor func(ctx context.Context) (*Session, error), maxSize int32) (Pool, error) {
	p := &puddlePool{}

	pool, err := puddle.NewPool(&puddle.Config[*Session]{
		Constructor: func(ctx context.Context) (*Session, error) {
			session, err := constructor(ctx)
			if err == nil {
				p.createdConns.Add(1)
			}
			return session, err
		},
		Destructor: func(s *Session) {
			p.destroyedConns.Add(1)
			_ = s.Close()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// puddlePool wraps puddle.Pool to implement our Pool interface.
type puddlePool struct {
	pool           *puddle.Pool[*Session]
	createdConns   atomic.Int64
	destroyedConns atomic.Int64
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrPoolClosed
		}
		return nil, err
	}
	return res, nil
}

func (p *puddlePool) AcquireAllIdle() []Resource {
	idle := p.pool.AcquireAllIdle()
	resources := make([]Resource, len(idle))
	for i, res := range idle {
		resources[i] = res
	}
	return resources
}

func (p *puddlePool) Close() {
	p.pool.Close()
}

// Stats maps puddle's statistics to PoolStats.
func (p *puddlePool) Stats() PoolStats {
	s := p.pool.Stat()

	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      uint64(p.createdConns.Load()),
		DestroyedConns:    uint64(p.destroyedConns.Load()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
