// Package scraper performs outbound HTTP for the lead sources: single
// fetches with UA rotation, proxies, per-host pacing and block detection,
// plus a small BFS crawler for company websites.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/leadscout/internal/bypass"
	"github.com/FranksOps/leadscout/internal/cache"
	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
	"github.com/FranksOps/leadscout/pkg/useragent"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

var (
	// ErrBlocked means the response was a bot-protection page.
	ErrBlocked = errors.New("blocked by bot protection")
	// ErrStatus wraps non-2xx responses.
	ErrStatus = errors.New("unexpected status")
)

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Limiter
	// Cache stores successful GET bodies for CacheTTL.
	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Request describes one outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// NoCache bypasses the cache for this call.
	NoCache bool
}

// Response captures what came back. Transport failures are recorded in
// Error rather than returned, so callers always get a Response.
type Response struct {
	ID         string        `json:"id"`
	URL        string        `json:"url"`
	Method     string        `json:"method"`
	StatusCode int           `json:"status_code"`
	Headers    http.Header   `json:"headers,omitempty"`
	Body       []byte        `json:"-"`
	Duration   time.Duration `json:"duration"`
	BlockedBy  string        `json:"blocked_by,omitempty"`
	Cached     bool          `json:"cached"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Error      string        `json:"error,omitempty"`
}

// Blocked reports whether a bot-protection detector fired.
func (r *Response) Blocked() bool { return r.BlockedBy != "" }

// Err folds transport errors, block pages and non-2xx statuses into one
// error value.
func (r *Response) Err() error {
	switch {
	case r.Error != "":
		return errors.New(r.Error)
	case r.Blocked():
		return fmt.Errorf("%s: %w (%s)", r.URL, ErrBlocked, r.BlockedBy)
	case r.StatusCode < 200 || r.StatusCode > 299:
		return fmt.Errorf("%s: %w %d", r.URL, ErrStatus, r.StatusCode)
	}
	return nil
}

// Fetcher is safe for concurrent use. One client is held for its lifetime,
// so a cookie jar persists across calls.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil, useragent.RoundRobin)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// The proxy is chosen per request and carried in the request context.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("scraper: transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: client: %w", err)
	}

	return &Fetcher{config: cfg, client: client, logger: cfg.Logger}, nil
}

// Get is Do for a plain GET.
func (f *Fetcher) Get(ctx context.Context, target string, header http.Header) *Response {
	return f.Do(ctx, Request{Method: http.MethodGet, URL: target, Header: header})
}

// Do performs req. Headers in req.Header win over the fetcher defaults; the
// rotating User-Agent is only applied when the caller did not set one.
func (f *Fetcher) Do(ctx context.Context, req Request) *Response {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	start := time.Now()
	res := &Response{
		ID:        uuid.NewString(),
		URL:       req.URL,
		Method:    req.Method,
		FetchedAt: start.UTC(),
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" {
		res.Error = fmt.Sprintf("invalid url %q", req.URL)
		return res
	}
	host := u.Hostname()

	cacheable := f.config.Cache != nil && req.Method == http.MethodGet && !req.NoCache
	key := cache.Key(req.Method, req.URL)
	if cacheable {
		if body, ok := f.config.Cache.Get(key); ok {
			metrics.FetchCacheHits.WithLabelValues(host).Inc()
			res.StatusCode = http.StatusOK
			res.Body = body
			res.Cached = true
			return res
		}
	}

	if err := f.config.Limiter.Wait(ctx, host); err != nil {
		res.Error = fmt.Sprintf("rate limiter: %v", err)
		return res
	}

	var body *bytes.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	var httpReq *http.Request
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	}
	if err != nil {
		res.Error = fmt.Sprintf("build request: %v", err)
		return res
	}

	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, vals := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", f.config.UAPool.Next())
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}
	if activeProxy != nil {
		httpReq = httpReq.WithContext(context.WithValue(httpReq.Context(), proxyKey, activeProxy))
	}

	resp, err := f.client.Do(httpReq.Context(), httpReq)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		res.Error = fmt.Sprintf("request failed: %v", err)
		res.Duration = time.Since(start)
		metrics.RecordFetch(host, 0, res.Error, "", res.Duration, 0)
		f.logger.Debug("fetch failed", "url", req.URL, "error", err)
		return res
	}
	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	data, err := f.client.ReadBody(resp)
	if err != nil {
		res.Error = err.Error()
	}
	res.StatusCode = resp.StatusCode
	res.Headers = resp.Header
	res.Body = data
	res.Duration = time.Since(start)
	res.BlockedBy = bypass.Analyze(bypass.Page{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       res.Body,
	}, bypass.DefaultDetectors())

	metrics.RecordFetch(host, res.StatusCode, res.Error, res.BlockedBy, res.Duration, len(res.Body))
	f.logger.Debug("fetched", "url", req.URL, "status", res.StatusCode, "bytes", len(res.Body), "duration", res.Duration, "blocked_by", res.BlockedBy)

	if cacheable && res.Err() == nil {
		if err := f.config.Cache.Set(key, res.Body, f.config.CacheTTL); err != nil {
			f.logger.Warn("cache write failed", "url", req.URL, "error", err)
		}
	}
	return res
}
