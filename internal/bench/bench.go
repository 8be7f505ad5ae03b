// Package bench drives concurrent get/set traffic against a udp-server.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loganszeto/udpkv/internal/client"
	"github.com/loganszeto/udpkv/internal/protocol"
)

var ErrBadOptions = errors.New("invalid bench options")

type Options struct {
	Addr      string
	Workers   int
	Ops       int
	RatioGet  float64
	ValueSize int
	KeySpace  int
	Timeout   time.Duration
}

type Result struct {
	Ops int64
	// Failures counts timeouts, send errors and bad-request replies.
	Failures  int64
	Elapsed   time.Duration
	Latencies []time.Duration // sorted ascending
}

func (r Result) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// Percentile returns the p-th percentile (0-100) of the recorded latencies.
func (r Result) Percentile(p int) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := len(r.Latencies) * p / 100
	if idx >= len(r.Latencies) {
		idx = len(r.Latencies) - 1
	}
	return r.Latencies[idx]
}

func (r Result) Report(w io.Writer) {
	fmt.Fprintf(w, "Total ops: %d\n", r.Ops)
	fmt.Fprintf(w, "Failures: %d\n", r.Failures)
	fmt.Fprintf(w, "Elapsed: %s\n", r.Elapsed)
	fmt.Fprintf(w, "Ops/sec: %.2f\n", r.OpsPerSec())
	if len(r.Latencies) == 0 {
		fmt.Fprintln(w, "No latency samples")
		return
	}
	fmt.Fprintf(w, "p50: %s\n", r.Percentile(50))
	fmt.Fprintf(w, "p95: %s\n", r.Percentile(95))
	fmt.Fprintf(w, "p99: %s\n", r.Percentile(99))
}

func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Workers <= 0 || opts.Ops <= 0 {
		return Result{}, fmt.Errorf("%w: workers and ops must be > 0", ErrBadOptions)
	}
	if opts.RatioGet < 0 || opts.RatioGet > 1 {
		return Result{}, fmt.Errorf("%w: ratio-get must be within [0,1]", ErrBadOptions)
	}
	if opts.KeySpace <= 0 {
		opts.KeySpace = 1000
	}

	value := strings.Repeat("x", opts.ValueSize)
	if value == "" {
		value = "x"
	}
	keys := make([]string, opts.KeySpace)
	for i := range keys {
		keys[i] = fmt.Sprintf("key:%d", i)
	}

	c := client.New(opts.Addr, opts.Timeout)
	var next, failures atomic.Int64
	lats := make([][]time.Duration, opts.Workers)

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
			for ctx.Err() == nil {
				if int(next.Add(1)) > opts.Ops {
					return
				}
				key := keys[rng.Intn(len(keys))]
				msg := "set " + key + " " + value
				if rng.Float64() < opts.RatioGet {
					msg = "get " + key
				}
				began := time.Now()
				reply, err := c.Send(ctx, msg)
				if err != nil || !accepted(reply) {
					failures.Add(1)
					continue
				}
				lats[id] = append(lats[id], time.Since(began))
			}
		}(i)
	}
	wg.Wait()

	res := Result{Failures: failures.Load(), Elapsed: time.Since(start)}
	for _, l := range lats {
		res.Latencies = append(res.Latencies, l...)
	}
	slices.Sort(res.Latencies)
	res.Ops = int64(len(res.Latencies)) + res.Failures
	return res, ctx.Err()
}

// accepted reports whether the server carried out the request. A get miss
// (404) is a normal outcome; bad requests and garbled replies are failures.
func accepted(reply string) bool {
	resp, err := protocol.ParseResponse([]byte(reply))
	if err != nil {
		return false
	}
	return resp.Status != protocol.StatusBadRequest
}
