// Package ratelimit paces outbound requests per host.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out a token bucket per host so one slow site does not stall
// requests to another. It is safe for concurrent use.
type Limiter struct {
	rps    float64
	burst  int
	jitter float64 // 0.0 to 1.0

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewLimiter creates a limiter allowing rps requests per second per host.
// Jitter is clamped to [0, 1] and adds up to jitter*interval of random delay
// after each token. If rps is <= 0, Wait never blocks.
func NewLimiter(rps float64, burst int, jitter float64) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Limiter{
		rps:    rps,
		burst:  burst,
		jitter: jitter,
		hosts:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.rps <= 0 {
		return ctx.Err()
	}
	if err := l.forHost(host).Wait(ctx); err != nil {
		return err
	}
	if l.jitter == 0 {
		return nil
	}

	interval := time.Duration(float64(time.Second) / l.rps)
	extra := time.Duration(rand.Float64() * l.jitter * float64(interval))
	if extra <= 0 {
		return nil
	}
	t := time.NewTimer(extra)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hosts reports how many hosts currently hold a bucket.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hosts)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.hosts[host]
	if !ok {
		rl = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.hosts[host] = rl
	}
	return rl
}
