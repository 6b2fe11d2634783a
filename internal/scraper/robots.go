package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsTxtAuditor fetches and caches robots.txt per host.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
}

func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL. A missing or
// unreadable robots.txt allows everything.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("robots: invalid url: %w", err)
	}

	data, err := r.load(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "host", u.Host, "error", err)
		return true, nil
	}
	if data == nil {
		return true, nil
	}
	return data.FindGroup(userAgent).Test(u.Path), nil
}

// Sitemaps returns the Sitemap: lines from origin's robots.txt.
func (r *RobotsTxtAuditor) Sitemaps(ctx context.Context, origin string) []string {
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		origin = "https://" + origin
	}
	data, err := r.load(ctx, strings.TrimSuffix(origin, "/"))
	if err != nil || data == nil {
		return nil
	}
	return data.Sitemaps
}

// load holds the lock across the fetch so each origin is requested once.
func (r *RobotsTxtAuditor) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data, nil
	}

	res := r.fetcher.Get(ctx, origin+"/robots.txt", nil)
	if res.Error != "" {
		r.cache[origin] = nil
		return nil, fmt.Errorf("robots: fetch: %s", res.Error)
	}
	if res.StatusCode >= 400 {
		r.cache[origin] = nil
		return nil, nil
	}

	data, err := robotstxt.FromBytes(res.Body)
	if err != nil {
		r.cache[origin] = nil
		return nil, fmt.Errorf("robots: parse: %w", err)
	}
	r.cache[origin] = data
	return data, nil
}
