package scraper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// errStop is how a visitor ends the crawl early.
var errStop = errors.New("crawl stopped by visitor")

// VisitFunc is called once per fetched page. Returning false stops the
// crawl.
type VisitFunc func(ctx context.Context, res *Response) bool

// CrawlConfig provides parameters for the BFS crawler.
type CrawlConfig struct {
	MaxDepth int
	// MaxPages caps the number of fetched pages (0 = unlimited).
	MaxPages    int
	Concurrency int
	// In-scope domains. Empty means any host.
	Domains       []string
	RespectRobots bool
	// UserAgent is matched against robots.txt groups.
	UserAgent string
	// QueueSize limits the BFS queue (0 = default 10000).
	QueueSize int
	// Follow filters discovered links before they are queued. Nil follows all.
	Follow func(link string) bool
}

// Crawler walks pages breadth-first from a set of seeds.
type Crawler struct {
	cfg     CrawlConfig
	fetcher *Fetcher
	logger  *slog.Logger
	auditor *RobotsTxtAuditor

	visitedMu sync.Mutex
	visited   map[string]struct{}
	fetched   atomic.Int64
}

type job struct {
	URL   string
	Depth int
}

func NewCrawler(cfg CrawlConfig, fetcher *Fetcher, logger *slog.Logger) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*"
	}

	var auditor *RobotsTxtAuditor
	if cfg.RespectRobots {
		auditor = NewRobotsTxtAuditor(fetcher, logger)
	}

	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		auditor: auditor,
		visited: make(map[string]struct{}),
	}
}

// Robots exposes the auditor so callers can read Sitemap: lines. Nil when
// RespectRobots is off.
func (c *Crawler) Robots() *RobotsTxtAuditor { return c.auditor }

// Run crawls from seeds, calling visit for every fetched page. It returns
// nil when the frontier drains, the page budget is spent, or visit asks to
// stop.
func (c *Crawler) Run(ctx context.Context, seeds []string, visit VisitFunc) error {
	queueSize := c.cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10000
	}
	queue := make(chan job, queueSize)

	for _, seed := range seeds {
		if len(queue) == cap(queue) {
			break
		}
		if u, ok := c.claim(seed); ok {
			queue <- job{URL: u, Depth: 0}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Discovered links call Add before being queued, so Wait covers both
	// seeds and everything found while crawling.
	var pending sync.WaitGroup
	pending.Add(len(queue))

	for i := 0; i < c.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				case j := <-queue:
					err := c.process(gCtx, j, queue, &pending, visit)
					pending.Done()
					if err != nil {
						return err
					}
				}
			}
		})
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	select {
	case <-gCtx.Done():
	case <-done:
	}
	cancel()
	err := g.Wait()

	// release jobs nobody will process so the waiter above exits
	for drained := false; !drained; {
		select {
		case <-queue:
			pending.Done()
		default:
			drained = true
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, errStop) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Crawler) process(ctx context.Context, j job, queue chan<- job, pending *sync.WaitGroup, visit VisitFunc) error {
	if c.cfg.MaxPages > 0 && c.fetched.Load() >= int64(c.cfg.MaxPages) {
		return errStop
	}

	if c.auditor != nil {
		allowed, err := c.auditor.IsAllowed(ctx, j.URL, c.cfg.UserAgent)
		if err != nil {
			c.logger.Warn("robots.txt check failed", "url", j.URL, "error", err)
		} else if !allowed {
			c.logger.Debug("disallowed by robots.txt", "url", j.URL)
			return nil
		}
	}

	c.logger.Debug("crawling", "url", j.URL, "depth", j.Depth)
	res := c.fetcher.Get(ctx, j.URL, nil)
	c.fetched.Add(1)

	if visit != nil && !visit(ctx, res) {
		return errStop
	}

	if j.Depth >= c.cfg.MaxDepth || res.Err() != nil {
		return nil
	}
	if ct := res.Headers.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "text/html") {
		return nil
	}

	for _, link := range extractLinks(j.URL, res.Body) {
		if c.cfg.Follow != nil && !c.cfg.Follow(link) {
			continue
		}
		next, ok := c.claim(link)
		if !ok {
			continue
		}
		pending.Add(1)
		select {
		case queue <- job{URL: next, Depth: j.Depth + 1}:
		case <-ctx.Done():
			pending.Done()
			return nil
		default:
			// queue full
			pending.Done()
		}
	}
	return nil
}

// claim normalizes rawURL and marks it visited. ok is false when the URL is
// out of scope or already claimed.
func (c *Crawler) claim(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	u.Fragment = ""
	if !c.inScope(u.Hostname()) {
		return "", false
	}

	key := u.String()
	c.visitedMu.Lock()
	defer c.visitedMu.Unlock()
	if _, seen := c.visited[key]; seen {
		return "", false
	}
	c.visited[key] = struct{}{}
	return key, true
}

func (c *Crawler) inScope(host string) bool {
	if len(c.cfg.Domains) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, d := range c.cfg.Domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func extractLinks(baseURL string, body []byte) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(u).String())
	})
	return links
}
