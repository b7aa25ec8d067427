package mpd

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a session pool.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total sessions created
	DestroyedConns    uint64 // Total sessions destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Sessions in pool (active + idle)
	IdleConns   int32 // Idle sessions available
	ActiveConns int32 // Sessions currently in use
}

// ClientStats contains statistics about client operations.
type ClientStats struct {
	Commands  uint64 // Commands sent
	Immediate uint64 // Commands sent in immediate mode
	Acks      uint64 // Replies carrying an ACK
	Errors    uint64 // Commands that failed without a reply
	BytesRead uint64 // Reply bytes returned to callers
}

type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(d time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(d.Nanoseconds()))
}

func (c *poolStatsCollector) recordCreate() {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
}

// recordDestroy is called for a session that was active.
func (c *poolStatsCollector) recordDestroy() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	c.activeConns.Add(-1)
}

// recordDestroyIdle is called for a session that was sitting in the pool.
func (c *poolStatsCollector) recordDestroyIdle() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
	c.idleConns.Add(-1)
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordActivate() {
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
	}
}

type clientStatsCollector struct {
	commands  atomic.Uint64
	immediate atomic.Uint64
	acks      atomic.Uint64
	errors    atomic.Uint64
	bytesRead atomic.Uint64
}

func (c *clientStatsCollector) recordCommand(mode ReadMode) {
	c.commands.Add(1)
	if mode == ReadImmediate {
		c.immediate.Add(1)
	}
}

func (c *clientStatsCollector) recordReply(ack bool, n int) {
	if ack {
		c.acks.Add(1)
	}
	c.bytesRead.Add(uint64(n))
}

func (c *clientStatsCollector) recordError() {
	c.errors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:  c.commands.Load(),
		Immediate: c.immediate.Load(),
		Acks:      c.acks.Load(),
		Errors:    c.errors.Load(),
		BytesRead: c.bytesRead.Load(),
	}
}
