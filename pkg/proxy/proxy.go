// Package proxy keeps a rotating set of outbound proxies with failure
// cooldown.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var ErrUnknownProxy = errors.New("proxy: not in pool")

type entry struct {
	url           *url.URL
	failures      int
	successes     int
	disabledUntil time.Time
}

// Stat is a point-in-time view of one proxy's health.
type Stat struct {
	URL       string `json:"url"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
	Cooling   bool   `json:"cooling"`
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures before a proxy is benched for Cooldown.
	MaxFailures int
	Cooldown    time.Duration
}

// Pool rotates proxies round-robin, skipping ones that are cooling down.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{maxFailures: cfg.MaxFailures, cooldown: cfg.Cooldown, now: time.Now}
}

// LoadFile reads one proxy URL per line. Blank lines and '#' comments are
// skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: open %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("proxy: read %s: %w", path, err)
	}
	return p.Add(urls...)
}

// Add parses and appends proxies. A missing scheme defaults to http.
func (p *Pool) Add(raw ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range raw {
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}
		u, err := url.Parse(r)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", r, err)
		}
		p.entries = append(p.entries, &entry{url: u})
	}
	return nil
}

// Len reports how many proxies are loaded.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next healthy proxy, or nil if none is available.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil
	}
	now := p.now()
	for i := 0; i < len(p.entries); i++ {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)
		if !e.disabledUntil.IsZero() && now.After(e.disabledUntil) {
			e.disabledUntil = time.Time{}
			e.failures = 0
		}
		if e.disabledUntil.IsZero() {
			return e.url
		}
	}
	return nil
}

// ProxyFunc adapts the pool to http.Transport.Proxy. An empty pool means a
// direct connection.
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return p.Next(), nil
	}
}

func (p *Pool) MarkSuccess(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(u)
	if e == nil {
		return ErrUnknownProxy
	}
	e.successes++
	if e.failures > 0 {
		e.failures--
	}
	return nil
}

// MarkFailure counts a failure and benches the proxy once MaxFailures is hit.
func (p *Pool) MarkFailure(u *url.URL) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.find(u)
	if e == nil {
		return ErrUnknownProxy
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.disabledUntil = p.now().Add(p.cooldown)
	}
	return nil
}

// Stats snapshots every proxy's counters.
func (p *Pool) Stats() []Stat {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	out := make([]Stat, len(p.entries))
	for i, e := range p.entries {
		out[i] = Stat{
			URL:       e.url.Redacted(),
			Failures:  e.failures,
			Successes: e.successes,
			Cooling:   !e.disabledUntil.IsZero() && now.Before(e.disabledUntil),
		}
	}
	return out
}

// must hold p.mu
func (p *Pool) find(u *url.URL) *entry {
	if u == nil {
		return nil
	}
	target := u.String()
	for _, e := range p.entries {
		if e.url.String() == target {
			return e
		}
	}
	return nil
}
