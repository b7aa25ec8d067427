package mpd

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pior/mpd/wire"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t testing.TB, config Config, addrs ...string) *Client {
	t.Helper()
	if config.Logger == nil {
		config.Logger = zaptest.NewLogger(t)
	}

	client, err := NewClient(NewStaticServers(addrs...), config)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func closedAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func TestNewClient_NoServers(t *testing.T) {
	_, err := NewClient(NewStaticServers(), Config{})
	require.ErrorIs(t, err, ErrNoServers)
}

func TestClient_SendCommand(t *testing.T) {
	for name, pool := range map[string]PoolFactory{"channel": NewChannelPool, "puddle": NewPuddlePool} {
		t.Run(name, func(t *testing.T) {
			mpd := newFakeMPD(map[string][]string{
				"status": {"volume: 50\n", "OK\n"},
			})
			client := newTestClient(t, Config{MaxSize: 2, Pool: pool}, mpd.start(t))

			reply, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
			require.NoError(t, err)
			assert.Equal(t, "volume: 50\nOK\n", reply)

			data, err := client.SendBinaryCommand(context.Background(), "status\n", ReadFramed)
			require.NoError(t, err)
			assert.Equal(t, reply, string(data))

			// The greeting was consumed, so it never shows up in a reply
			assert.Equal(t, []string{"status", "status"}, mpd.Received())
		})
	}
}

func TestClient_Run(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"play 99": {"ACK [50@0] {play} No such song\n"},
		"play 0":  {"OK\n"},
	})
	client := newTestClient(t, Config{}, mpd.start(t))

	reply, err := client.Run(context.Background(), "play 0\n")
	require.NoError(t, err)
	assert.Equal(t, "OK\n", reply)

	_, err = client.Run(context.Background(), "play 99\n")
	var ack *wire.AckError
	require.ErrorAs(t, err, &ack)
	assert.Equal(t, wire.AckNoExist, ack.Code)

	// ACK keeps the session
	stats := client.AllPoolStats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(1), stats[0].PoolStats.CreatedConns)
	assert.Zero(t, stats[0].PoolStats.DestroyedConns)
}

func TestClient_DestroysBrokenSession(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"status": {"volume: 50\n", hangUp},
	})
	client := newTestClient(t, Config{}, mpd.start(t))

	_, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
	require.ErrorIs(t, err, ErrConnectionClosed)

	stats := client.AllPoolStats()[0].PoolStats
	assert.Equal(t, uint64(1), stats.DestroyedConns)
	assert.Zero(t, stats.TotalConns)

	// A new session is created for the next command
	require.NoError(t, client.Ping(context.Background()))
	stats = client.AllPoolStats()[0].PoolStats
	assert.Equal(t, uint64(2), stats.CreatedConns)
	assert.Equal(t, int32(1), stats.TotalConns)
}

func TestClient_Stats(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"status": {"volume: 50\nOK\n"},
		"noidle": {"OK\n"},
		"bad":    {"ACK [5@0] {bad} unknown command\n"},
		"broken": {hangUp},
	})
	client := newTestClient(t, Config{Session: SessionConfig{ImmediateWait: time.Second}}, mpd.start(t))
	ctx := context.Background()

	_, err := client.SendCommand(ctx, "status\n", ReadFramed)
	require.NoError(t, err)
	_, err = client.SendCommand(ctx, "noidle\n", ReadImmediate)
	require.NoError(t, err)
	_, err = client.SendCommand(ctx, "bad\n", ReadFramed)
	require.NoError(t, err)
	_, err = client.SendCommand(ctx, "broken\n", ReadFramed)
	require.Error(t, err)

	stats := client.Stats()
	assert.Equal(t, uint64(4), stats.Commands)
	assert.Equal(t, uint64(1), stats.Immediate)
	assert.Equal(t, uint64(1), stats.Acks)
	assert.Equal(t, uint64(1), stats.Errors)
	assert.Equal(t, uint64(len("volume: 50\nOK\n")+len("OK\n")+len("ACK [5@0] {bad} unknown command\n")), stats.BytesRead)
}

func TestClient_Concurrent(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"status": {"volume: 50\n", "OK\n"},
	})
	client := newTestClient(t, Config{MaxSize: 4}, mpd.start(t))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				reply, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
				assert.NoError(t, err)
				assert.Equal(t, "volume: 50\nOK\n", reply)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(200), client.Stats().Commands)
	assert.LessOrEqual(t, client.AllPoolStats()[0].PoolStats.CreatedConns, uint64(4))
}

func TestClient_Routing(t *testing.T) {
	kitchen := newFakeMPD(nil)
	garden := newFakeMPD(nil)
	kitchenAddr := kitchen.start(t)
	gardenAddr := garden.start(t)

	client := newTestClient(t, Config{
		SelectServer: func(key string, servers []string) (string, error) {
			if key == "garden" {
				return servers[1], nil
			}
			return servers[0], nil
		},
	}, kitchenAddr, gardenAddr)

	_, err := client.Do(context.Background(), &Request{Command: "status\n", Key: "garden"})
	require.NoError(t, err)
	_, err = client.Do(context.Background(), &Request{Command: "currentsong\n", Key: "kitchen"})
	require.NoError(t, err)

	assert.Equal(t, []string{"status"}, garden.Received())
	assert.Equal(t, []string{"currentsong"}, kitchen.Received())
	assert.Len(t, client.AllPoolStats(), 2)
}

func TestClient_Ping(t *testing.T) {
	mpd := newFakeMPD(nil)
	client := newTestClient(t, Config{}, mpd.start(t))

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, []string{"ping"}, mpd.Received())
}

func TestClient_Ping_UnreachableServer(t *testing.T) {
	mpd := newFakeMPD(nil)
	down := closedAddr(t)
	client := newTestClient(t, Config{}, mpd.start(t), down)

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), down)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
}

func TestClient_SkipGreeting(t *testing.T) {
	mpd := newFakeMPD(nil)
	mpd.greeting = ""
	client := newTestClient(t, Config{SkipGreeting: true}, mpd.start(t))

	reply, err := client.SendCommand(context.Background(), "ping\n", ReadFramed)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", reply)
}

func TestClient_Timeout(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"idle": {},
	})
	client := newTestClient(t, Config{Timeout: 30 * time.Millisecond}, mpd.start(t))

	start := time.Now()
	_, err := client.SendCommand(context.Background(), "idle\n", ReadFramed)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_HealthCheck(t *testing.T) {
	mpd := newFakeMPD(nil)
	client := newTestClient(t, Config{HealthCheckInterval: 20 * time.Millisecond}, mpd.start(t))

	_, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(mpd.Received()) >= 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "ping", mpd.Received()[1])
}

func TestClient_HealthCheck_IdleTimeout(t *testing.T) {
	mpd := newFakeMPD(nil)
	client := newTestClient(t, Config{
		HealthCheckInterval: 20 * time.Millisecond,
		MaxConnIdleTime:     10 * time.Millisecond,
	}, mpd.start(t))

	require.NoError(t, client.Ping(context.Background()))

	require.Eventually(t, func() bool {
		return client.AllPoolStats()[0].PoolStats.DestroyedConns == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_HealthCheck_Unhealthy(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"ping": {"ACK [4@0] {ping} you don't have permission for \"ping\"\n"},
	})
	client := newTestClient(t, Config{HealthCheckInterval: 20 * time.Millisecond}, mpd.start(t))

	_, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return client.AllPoolStats()[0].PoolStats.DestroyedConns == 1
	}, time.Second, 10*time.Millisecond)
}

func TestClient_Close(t *testing.T) {
	mpd := newFakeMPD(nil)
	client, err := NewClient(NewStaticServers(mpd.start(t)), Config{HealthCheckInterval: time.Hour})
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))

	client.Close()
	client.Close()

	_, err = client.SendCommand(context.Background(), "status\n", ReadFramed)
	require.ErrorIs(t, err, ErrPoolClosed)
	require.ErrorIs(t, client.Ping(context.Background()), ErrPoolClosed)
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := newTestClient(t, Config{
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute),
	}, closedAddr(t))

	for range 3 {
		_, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
	}

	_, err := client.SendCommand(context.Background(), "status\n", ReadFramed)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)

	stats := client.AllPoolStats()[0]
	assert.Equal(t, gobreaker.StateOpen, stats.CircuitBreakerState)
}

func TestClient_CircuitBreaker_AckIsSuccess(t *testing.T) {
	mpd := newFakeMPD(nil)
	client := newTestClient(t, Config{
		NewCircuitBreaker: NewCircuitBreakerConfig(1, time.Minute, time.Minute),
	}, mpd.start(t))

	for range 5 {
		resp, err := client.Do(context.Background(), &Request{Command: "nosuchcommand\n"})
		require.NoError(t, err)
		require.True(t, resp.IsAck())
	}

	stats := client.AllPoolStats()[0]
	assert.Equal(t, gobreaker.StateClosed, stats.CircuitBreakerState)
	assert.Equal(t, uint32(5), stats.CircuitBreakerCounts.TotalSuccesses)
}

func TestClient_ContextCancelledWhileWaiting(t *testing.T) {
	mpd := newFakeMPD(map[string][]string{
		"idle": {},
	})
	client := newTestClient(t, Config{MaxSize: 1}, mpd.start(t))

	// Hold the only session
	busy, cancelBusy := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.SendCommand(busy, "idle\n", ReadFramed)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(mpd.Received()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.SendCommand(ctx, "status\n", ReadFramed)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	cancelBusy()
	require.True(t, errors.Is(<-done, context.Canceled))
}
