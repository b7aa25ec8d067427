// Command mpd-bench sends read-only commands to MPD servers from concurrent
// workers and reports throughput and latency.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/mpd"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Workload names a command and the way its reply is read.
type Workload struct {
	Name    string
	Command string
	Mode    mpd.ReadMode
}

var workloads = []Workload{
	{"ping", "ping\n", mpd.ReadFramed},
	{"status", "status\n", mpd.ReadFramed},
	{"currentsong", "currentsong\n", mpd.ReadFramed},
	{"playlistinfo", "playlistinfo\n", mpd.ReadFramed},
	{"stats", "stats\n", mpd.ReadFramed},
}

type BenchmarkResult struct {
	Workload     string
	Duration     time.Duration
	TotalOps     int64
	Failures     int64
	Acks         int64
	Bytes        int64
	AvgLatency   time.Duration
	P99Latency   time.Duration
	OpsPerSecond float64
}

func main() {
	var (
		workload    = pflag.StringP("workload", "w", "all", "workload: "+workloadNames()+" or all")
		duration    = pflag.DurationP("duration", "d", 5*time.Second, "duration of each workload")
		concurrency = pflag.IntP("concurrency", "c", 4, "number of concurrent workers")
		servers     = pflag.StringSliceP("server", "s", []string{"localhost:6600"}, "server address, repeatable")
		puddle      = pflag.Bool("puddle", false, "use the puddle pool")
	)
	pflag.Parse()

	config := mpd.Config{
		MaxSize: int32(*concurrency),
		Timeout: 5 * time.Second,
		Logger:  zap.NewNop(),
	}
	if *puddle {
		config.Pool = mpd.NewPuddlePool
	}

	client, err := mpd.NewClient(mpd.NewStaticServers(*servers...), config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mpd-bench:", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Servers: %s  Concurrency: %d  Duration: %s\n", strings.Join(*servers, ","), *concurrency, *duration)

	fmt.Print("Testing connection...")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf(" failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(" success!")

	for _, w := range workloads {
		if *workload != "all" && *workload != w.Name {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		printResult(run(ctx, client, w, *duration, *concurrency))
	}

	s := client.Stats()
	fmt.Printf("\nClient: commands=%d acks=%d errors=%d bytes=%d\n", s.Commands, s.Acks, s.Errors, s.BytesRead)
}

func workloadNames() string {
	names := make([]string, len(workloads))
	for i, w := range workloads {
		names[i] = w.Name
	}
	return strings.Join(names, ", ")
}

func run(ctx context.Context, client *mpd.Client, w Workload, duration time.Duration, concurrency int) BenchmarkResult {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var ops, failures, acks, bytes atomic.Int64
	latencies := make([][]time.Duration, concurrency)

	start := time.Now()
	var wg sync.WaitGroup
	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := &mpd.Request{Command: w.Command, Mode: w.Mode, Key: fmt.Sprintf("worker-%d", i)}

			for ctx.Err() == nil {
				opStart := time.Now()
				resp, err := client.Do(ctx, req)
				if ctx.Err() != nil {
					return
				}
				latencies[i] = append(latencies[i], time.Since(opStart))
				ops.Add(1)

				switch {
				case err != nil:
					failures.Add(1)
				case resp.IsAck():
					acks.Add(1)
				default:
					bytes.Add(int64(len(resp.Data)))
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var all []time.Duration
	for _, l := range latencies {
		all = append(all, l...)
	}

	result := BenchmarkResult{
		Workload: w.Name,
		Duration: elapsed,
		TotalOps: ops.Load(),
		Failures: failures.Load(),
		Acks:     acks.Load(),
		Bytes:    bytes.Load(),
	}
	if len(all) > 0 {
		var total time.Duration
		for _, l := range all {
			total += l
		}
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })

		result.AvgLatency = total / time.Duration(len(all))
		result.P99Latency = all[len(all)*99/100]
		result.OpsPerSecond = float64(result.TotalOps) / elapsed.Seconds()
	}
	return result
}

func printResult(r BenchmarkResult) {
	fmt.Printf("\n--- %s ---\n", r.Workload)
	fmt.Printf("  Ops:        %d (%.0f/s)\n", r.TotalOps, r.OpsPerSecond)
	fmt.Printf("  Failures:   %d\n", r.Failures)
	fmt.Printf("  ACKs:       %d\n", r.Acks)
	fmt.Printf("  Bytes:      %d\n", r.Bytes)
	fmt.Printf("  Latency:    avg %v, p99 %v\n", r.AvgLatency, r.P99Latency)
}
