// Command mpdc is an interactive client for MPD servers.
//
// Each input line is sent as a command and the raw reply is printed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pior/mpd"
	"github.com/pior/mpd/promexporter"
	"github.com/pior/mpd/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mpdc:", err)
		os.Exit(1)
	}
}

func run() error {
	config, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("config loaded", zap.Stringer("config", config))

	client, err := mpd.NewClient(mpd.NewStaticServers(config.Addresses...), mpd.Config{
		MaxSize:             int32(config.MaxSize),
		Timeout:             config.Timeout,
		MaxConnIdleTime:     50 * time.Second,
		HealthCheckInterval: 15 * time.Second,
		NewCircuitBreaker:   newCircuitBreaker(logger),
		Logger:              logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if config.MetricsAddress != "" {
		srv := serveMetrics(config.MetricsAddress, client, logger)
		defer func() { _ = srv.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	editor := NewLineEditor()
	defer editor.Close()

	r := &repl{client: client, in: editor, out: os.Stdout}
	return r.run(ctx)
}

func newCircuitBreaker(logger *zap.Logger) func(addr string) *mpd.CircuitBreaker {
	return func(addr string) *mpd.CircuitBreaker {
		settings := mpd.CircuitBreakerSettings(addr, 1, time.Minute, 10*time.Second)
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("addr", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		return gobreaker.NewCircuitBreaker[*wire.Response](settings)
	}
}

func serveMetrics(addr string, client *mpd.Client, logger *zap.Logger) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		promexporter.NewCollector(client),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
