package mpd

import (
	"context"
	"sync"
	"time"

	"github.com/pior/mpd/internal/coarsetime"
)

// NewChannelPool creates a new channel-based pool.
// This is the default pool implementation.
func NewChannelPool(constructor func(ctx context.Context) (*Session, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &channelPool{
		constructor: constructor,
		idle:        make(chan *channelResource, maxSize),
		slots:       make(chan struct{}, maxSize),
	}, nil
}

// channelResource implements Resource for channel pool.
type channelResource struct {
	session      *Session
	pool         *channelPool
	creationTime time.Time
	lastUsedTime time.Time
}

func (r *channelResource) Value() *Session {
	return r.session
}

func (r *channelResource) Release() {
	r.lastUsedTime = coarsetime.Now()
	r.pool.put(r)
}

func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	_ = r.session.Close()
	r.pool.stats.recordDestroy()
	r.pool.freeSlot()
}

func (r *channelResource) CreationTime() time.Time {
	return r.creationTime
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsedTime)
}

// channelPool keeps idle sessions in a buffered channel. A token in slots
// stands for every live session, idle or acquired.
type channelPool struct {
	constructor func(ctx context.Context) (*Session, error)

	idle  chan *channelResource
	slots chan struct{}

	mu     sync.Mutex // guards closed and sends on idle
	closed bool

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	if p.isClosed() {
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}

	// Idle session first
	select {
	case res, ok := <-p.idle:
		return p.acquired(res, ok)
	default:
	}

	// Then a new session if the pool is not full
	select {
	case p.slots <- struct{}{}:
		return p.create(ctx)
	default:
	}

	// Pool is full, wait for a session to be released or destroyed
	waitStart := time.Now()
	select {
	case res, ok := <-p.idle:
		p.stats.recordAcquireWait(time.Since(waitStart))
		return p.acquired(res, ok)
	case p.slots <- struct{}{}:
		p.stats.recordAcquireWait(time.Since(waitStart))
		return p.create(ctx)
	case <-ctx.Done():
		p.stats.recordAcquireError()
		return nil, ctx.Err()
	}
}

func (p *channelPool) acquired(res *channelResource, ok bool) (Resource, error) {
	if !ok {
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}
	p.stats.recordAcquireFromIdle()
	return res, nil
}

// create builds a session in a slot the caller already holds.
func (p *channelPool) create(ctx context.Context) (Resource, error) {
	// A slot freed by Destroy after Close can still be won by a waiter
	if p.isClosed() {
		p.freeSlot()
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	}

	session, err := p.constructor(ctx)
	if err != nil {
		p.freeSlot()
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate()

	now := coarsetime.Now()
	return &channelResource{
		session:      session,
		pool:         p,
		creationTime: now,
		lastUsedTime: now,
	}, nil
}

func (p *channelPool) put(res *channelResource) {
	if res.session.IsClosed() {
		res.Destroy()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = res.session.Close()
		p.stats.recordDestroy()
		p.freeSlot()
		return
	}

	// idle has room for every slot, so this never blocks
	p.idle <- res
	p.stats.recordRelease()
}

func (p *channelPool) freeSlot() {
	<-p.slots
}

func (p *channelPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource

	for {
		select {
		case res, ok := <-p.idle:
			if !ok {
				return idle
			}
			p.stats.recordAcquireFromIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

// Close destroys the idle sessions. Acquired sessions are destroyed when
// they are released.
func (p *channelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	close(p.idle)
	for res := range p.idle {
		_ = res.session.Close()
		p.stats.recordDestroyIdle()
		p.freeSlot()
	}
}

// Stats returns a snapshot of pool statistics.
func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
