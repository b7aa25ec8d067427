package mpd

import (
	"context"
	"errors"
	"time"
)

// ErrPoolClosed is returned by Acquire once the pool is closed.
var ErrPoolClosed = errors.New("mpd: pool closed")

// Pool holds sessions to a single server. Each acquired session serves one
// caller at a time.
type Pool interface {
	Acquire(ctx context.Context) (Resource, error)
	AcquireAllIdle() []Resource
	Close()
	Stats() PoolStats
}

// Resource is a session checked out of a Pool.
type Resource interface {
	Value() *Session
	// Release returns the session to the pool.
	Release()
	// ReleaseUnused returns the session without updating its last use time.
	ReleaseUnused()
	// Destroy closes the session and frees its slot.
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// PoolFactory creates a pool of at most maxSize sessions built by constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Session, error), maxSize int32) (Pool, error)
