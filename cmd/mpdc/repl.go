package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pior/mpd"
	"github.com/pior/mpd/wire"
)

const prompt = "mpd> "

type commander interface {
	Do(ctx context.Context, req *mpd.Request) (*wire.Response, error)
	Ping(ctx context.Context) error
	Stats() mpd.ClientStats
	AllPoolStats() []mpd.ServerPoolStats
}

type lineReader interface {
	GetLine(prompt string) (string, error)
}

// repl sends each input line as a command. Syntax:
//
//	status            framed command
//	!noidle           immediate command
//	@kitchen status   command routed with key "kitchen"
//	:ping :stats :quit
type repl struct {
	client commander
	in     lineReader
	out    io.Writer
}

func (r *repl) run(ctx context.Context) error {
	for ctx.Err() == nil {
		line, err := r.in.GetLine(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := r.builtin(ctx, line); quit {
				return nil
			}
			continue
		}

		r.send(ctx, parseRequest(line))
	}
	return nil
}

func parseRequest(line string) *mpd.Request {
	req := &mpd.Request{Mode: mpd.ReadFramed}

	if key, rest, ok := strings.Cut(line, " "); ok && strings.HasPrefix(key, "@") {
		req.Key = strings.TrimPrefix(key, "@")
		line = strings.TrimSpace(rest)
	}
	if cmd, ok := strings.CutPrefix(line, "!"); ok {
		req.Mode = mpd.ReadImmediate
		line = cmd
	}

	req.Command = line + "\n"
	return req
}

func (r *repl) send(ctx context.Context, req *mpd.Request) {
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}

	if req.Mode == mpd.ReadImmediate && len(resp.Data) == 0 {
		fmt.Fprintln(r.out, "(no reply)")
		return
	}
	fmt.Fprint(r.out, resp.Text())
	if !strings.HasSuffix(resp.Text(), "\n") {
		fmt.Fprintln(r.out)
	}
}

func (r *repl) builtin(ctx context.Context, line string) (quit bool) {
	switch line {
	case ":quit", ":q", ":exit":
		return true

	case ":ping":
		if err := r.client.Ping(ctx); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		} else {
			fmt.Fprintln(r.out, "OK")
		}

	case ":stats":
		s := r.client.Stats()
		fmt.Fprintf(r.out, "commands=%d immediate=%d acks=%d errors=%d bytes=%d\n",
			s.Commands, s.Immediate, s.Acks, s.Errors, s.BytesRead)

		pools := r.client.AllPoolStats()
		sort.Slice(pools, func(i, j int) bool { return pools[i].Addr < pools[j].Addr })
		for _, p := range pools {
			fmt.Fprintf(r.out, "%s: total=%d active=%d idle=%d created=%d destroyed=%d breaker=%s\n",
				p.Addr, p.PoolStats.TotalConns, p.PoolStats.ActiveConns, p.PoolStats.IdleConns,
				p.PoolStats.CreatedConns, p.PoolStats.DestroyedConns, p.CircuitBreakerState)
		}

	default:
		fmt.Fprintf(r.out, "unknown command %s (try :ping, :stats, :quit)\n", line)
	}
	return false
}
