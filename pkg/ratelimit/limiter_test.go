package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NoBlockWhenZeroRPS(t *testing.T) {
	limiter := NewLimiter(0, 1, 0.5)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("limiter with 0 RPS should not block")
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(10, 1, 0) // 100ms interval
	ctx := context.Background()

	// first token is available immediately
	_ = limiter.Wait(ctx, "a.test")

	start := time.Now()
	if err := limiter.Wait(ctx, "a.test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := time.Since(start)
	if d < 50*time.Millisecond || d > 200*time.Millisecond {
		t.Errorf("expected wait around 100ms, took %v", d)
	}
}

func TestLimiter_HostsAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1, 0)
	ctx := context.Background()

	_ = limiter.Wait(ctx, "a.test")
	start := time.Now()
	if err := limiter.Wait(ctx, "b.test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("second host should not wait on the first host's bucket")
	}
	if limiter.Hosts() != 2 {
		t.Errorf("hosts = %d", limiter.Hosts())
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(1, 1, 0)
	_ = limiter.Wait(context.Background(), "a.test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "a.test"); err == nil {
		t.Fatal("expected context canceled error")
	}
}

func TestLimiter_Jitter(t *testing.T) {
	limiter := NewLimiter(10, 1, 0.5) // up to 50ms extra
	ctx := context.Background()

	_ = limiter.Wait(ctx, "a.test")
	start := time.Now()
	if err := limiter.Wait(ctx, "a.test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := time.Since(start); d < 50*time.Millisecond || d > 250*time.Millisecond {
		t.Errorf("jittered wait out of range: %v", d)
	}
}
