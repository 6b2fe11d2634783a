// Package source holds the lead-source adapters and the fail-soft boundary
// every adapter is invoked through.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
)

// Source identities accepted in requests.
const (
	Reddit       = "reddit"
	Fiverr       = "fiverr"
	GoZambiaJobs = "gozambiajobs"
	Google       = "google"
	Apollo       = "apollo"
)

// Known lists the supported sources in invocation order.
var Known = []string{Reddit, Fiverr, GoZambiaJobs, Google, Apollo}

// Normalize lowercases id and reports whether it names a supported source.
func Normalize(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, k := range Known {
		if id == k {
			return id, true
		}
	}
	return id, false
}

// Query is what every adapter receives.
type Query struct {
	// Keywords is the boolean query built from the selected problem signals.
	Keywords string
	Industry string
	Location string
	// Credential is only read by adapters that need one.
	Credential string
}

// Adapter fetches raw leads from one external source.
type Adapter interface {
	// ID is the request identity, e.g. "reddit".
	ID() string
	// Label is the display name reported in run metadata.
	Label() string
	Timeout() time.Duration
	Fetch(ctx context.Context, q Query) ([]lead.Raw, error)
}

// Config is shared by the network adapters. BaseURL exists so tests and
// mirrors can point an adapter elsewhere.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) withDefaults(baseURL string, timeout time.Duration) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = timeout
	}
	return c
}

// Outcome is the settled result of one adapter invocation.
type Outcome struct {
	Source   string
	Label    string
	Leads    []lead.Raw
	Err      error
	Duration time.Duration
}

// OK reports whether the invocation succeeded, even with zero leads.
func (o Outcome) OK() bool { return o.Err == nil }

// ErrPanic wraps a recovered adapter panic.
var ErrPanic = errors.New("adapter panicked")

// Invoke runs a under its own timeout and never lets a failure escape:
// errors, panics and deadline overruns all come back as Outcome.Err with
// no leads. The adapter goroutine is abandoned on timeout; it sees its
// context cancelled and its result is discarded.
func Invoke(ctx context.Context, a Adapter, q Query, logger *slog.Logger) Outcome {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	out := Outcome{Source: a.ID(), Label: a.Label()}

	if t := a.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	type result struct {
		leads []lead.Raw
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		leads, err := a.Fetch(ctx, q)
		ch <- result{leads: leads, err: err}
	}()

	select {
	case r := <-ch:
		out.Leads, out.Err = r.leads, r.err
	case <-ctx.Done():
		out.Err = ctx.Err()
	}
	out.Duration = time.Since(start)

	if out.Err != nil {
		out.Leads = nil
		logger.Warn("source failed", "source", out.Source, "err", out.Err, "duration", out.Duration)
	} else {
		logger.Info("source done", "source", out.Source, "leads", len(out.Leads), "duration", out.Duration)
	}
	metrics.RecordSource(out.Source, len(out.Leads), out.Err, out.Duration)
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

// collapse squeezes runs of whitespace to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
