// Package promexporter exposes mpd.Client statistics to Prometheus.
package promexporter

import (
	"github.com/pior/mpd"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is implemented by *mpd.Client.
type StatsSource interface {
	Stats() mpd.ClientStats
	AllPoolStats() []mpd.ServerPoolStats
}

// Collector reads client and pool statistics on every scrape.
type Collector struct {
	source StatsSource

	commands  *prometheus.Desc
	acks      *prometheus.Desc
	errors    *prometheus.Desc
	bytesRead *prometheus.Desc

	poolConnections *prometheus.Desc
	poolCreated     *prometheus.Desc
	poolDestroyed   *prometheus.Desc
	poolAcquires    *prometheus.Desc
	poolWaits       *prometheus.Desc
	poolWaitSeconds *prometheus.Desc
	poolErrors      *prometheus.Desc

	circuitState    *prometheus.Desc
	circuitRequests *prometheus.Desc
	circuitFailures *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for source. Register it with a
// prometheus.Registerer.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,

		commands: prometheus.NewDesc("mpd_client_commands_total",
			"Total number of commands sent", []string{"mode"}, nil),
		acks: prometheus.NewDesc("mpd_client_acks_total",
			"Total number of replies carrying an ACK", nil, nil),
		errors: prometheus.NewDesc("mpd_client_errors_total",
			"Total number of commands that failed without a reply", nil, nil),
		bytesRead: prometheus.NewDesc("mpd_client_read_bytes_total",
			"Total number of reply bytes returned to callers", nil, nil),

		poolConnections: prometheus.NewDesc("mpd_pool_connections",
			"Sessions in the pool", []string{"server", "state"}, nil), // total, active, idle
		poolCreated: prometheus.NewDesc("mpd_pool_connections_created_total",
			"Total sessions created", []string{"server"}, nil),
		poolDestroyed: prometheus.NewDesc("mpd_pool_connections_destroyed_total",
			"Total sessions destroyed", []string{"server"}, nil),
		poolAcquires: prometheus.NewDesc("mpd_pool_acquires_total",
			"Total acquire attempts", []string{"server"}, nil),
		poolWaits: prometheus.NewDesc("mpd_pool_acquire_waits_total",
			"Total acquires that waited for a session", []string{"server"}, nil),
		poolWaitSeconds: prometheus.NewDesc("mpd_pool_acquire_wait_seconds_total",
			"Total time spent waiting for a session", []string{"server"}, nil),
		poolErrors: prometheus.NewDesc("mpd_pool_acquire_errors_total",
			"Total failed acquire attempts", []string{"server"}, nil),

		circuitState: prometheus.NewDesc("mpd_circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=half-open, 2=open)", []string{"server"}, nil),
		circuitRequests: prometheus.NewDesc("mpd_circuit_breaker_requests",
			"Requests counted by the circuit breaker in the current interval", []string{"server"}, nil),
		circuitFailures: prometheus.NewDesc("mpd_circuit_breaker_failures",
			"Circuit breaker failure counts", []string{"server", "type"}, nil), // total, consecutive
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.commands
	ch <- c.acks
	ch <- c.errors
	ch <- c.bytesRead
	ch <- c.poolConnections
	ch <- c.poolCreated
	ch <- c.poolDestroyed
	ch <- c.poolAcquires
	ch <- c.poolWaits
	ch <- c.poolWaitSeconds
	ch <- c.poolErrors
	ch <- c.circuitState
	ch <- c.circuitRequests
	ch <- c.circuitFailures
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	counter(c.commands, stats.Commands-stats.Immediate, "framed")
	counter(c.commands, stats.Immediate, "immediate")
	counter(c.acks, stats.Acks)
	counter(c.errors, stats.Errors)
	counter(c.bytesRead, stats.BytesRead)

	for _, sp := range c.source.AllPoolStats() {
		ps := sp.PoolStats

		gauge(c.poolConnections, float64(ps.TotalConns), sp.Addr, "total")
		gauge(c.poolConnections, float64(ps.ActiveConns), sp.Addr, "active")
		gauge(c.poolConnections, float64(ps.IdleConns), sp.Addr, "idle")
		counter(c.poolCreated, ps.CreatedConns, sp.Addr)
		counter(c.poolDestroyed, ps.DestroyedConns, sp.Addr)
		counter(c.poolAcquires, ps.AcquireCount, sp.Addr)
		counter(c.poolWaits, ps.AcquireWaitCount, sp.Addr)
		ch <- prometheus.MustNewConstMetric(c.poolWaitSeconds, prometheus.CounterValue, float64(ps.AcquireWaitTimeNs)/1e9, sp.Addr)
		counter(c.poolErrors, ps.AcquireErrors, sp.Addr)

		gauge(c.circuitState, float64(sp.CircuitBreakerState), sp.Addr)
		gauge(c.circuitRequests, float64(sp.CircuitBreakerCounts.Requests), sp.Addr)
		gauge(c.circuitFailures, float64(sp.CircuitBreakerCounts.TotalFailures), sp.Addr, "total")
		gauge(c.circuitFailures, float64(sp.CircuitBreakerCounts.ConsecutiveFailures), sp.Addr, "consecutive")
	}
}
