package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/scraper"
)

type stubAdapter struct {
	id      string
	timeout time.Duration
	fetch   func(ctx context.Context, q Query) ([]lead.Raw, error)
}

func (s stubAdapter) ID() string             { return s.id }
func (s stubAdapter) Label() string          { return "Stub " + s.id }
func (s stubAdapter) Timeout() time.Duration { return s.timeout }
func (s stubAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	return s.fetch(ctx, q)
}

func newFetcher(t *testing.T) *scraper.Fetcher {
	t.Helper()
	f, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestInvoke_Success(t *testing.T) {
	a := stubAdapter{id: "ok", timeout: time.Second, fetch: func(context.Context, Query) ([]lead.Raw, error) {
		return []lead.Raw{{ID: "ok-1"}}, nil
	}}
	out := Invoke(context.Background(), a, Query{}, nil)
	if !out.OK() || len(out.Leads) != 1 || out.Source != "ok" || out.Label != "Stub ok" {
		t.Errorf("outcome = %+v", out)
	}
}

func TestInvoke_ErrorDropsLeads(t *testing.T) {
	a := stubAdapter{id: "bad", fetch: func(context.Context, Query) ([]lead.Raw, error) {
		return []lead.Raw{{ID: "partial"}}, errors.New("boom")
	}}
	out := Invoke(context.Background(), a, Query{}, nil)
	if out.OK() || out.Leads != nil {
		t.Errorf("outcome = %+v", out)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	a := stubAdapter{id: "slow", timeout: 20 * time.Millisecond, fetch: func(ctx context.Context, q Query) ([]lead.Raw, error) {
		time.Sleep(500 * time.Millisecond)
		return []lead.Raw{{ID: "late"}}, nil
	}}
	start := time.Now()
	out := Invoke(context.Background(), a, Query{}, nil)
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("err = %v", out.Err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Error("Invoke should return at the deadline, not when the adapter finishes")
	}
}

func TestInvoke_Panic(t *testing.T) {
	a := stubAdapter{id: "panicky", fetch: func(context.Context, Query) ([]lead.Raw, error) {
		panic("nil map")
	}}
	out := Invoke(context.Background(), a, Query{}, nil)
	if !errors.Is(out.Err, ErrPanic) {
		t.Errorf("err = %v", out.Err)
	}
}

func TestNormalize(t *testing.T) {
	if id, ok := Normalize(" Reddit "); !ok || id != Reddit {
		t.Errorf("got %q %v", id, ok)
	}
	if _, ok := Normalize("myspace"); ok {
		t.Error("unknown source accepted")
	}
}

func TestPlaceholder(t *testing.T) {
	p := NewPlaceholder("")
	leads, err := p.Fetch(context.Background(), Query{})
	if err != nil || len(leads) != 1 {
		t.Fatalf("leads=%v err=%v", leads, err)
	}
	if leads[0].SourceURL != DefaultApolloSignupURL || p.Label() != "Apollo" || p.ID() != Apollo {
		t.Errorf("placeholder = %+v", leads[0])
	}
}
