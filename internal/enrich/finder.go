// Package enrich looks up contact details on a company's own website by
// crawling a handful of likely pages.
package enrich

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// contactPaths are tried on every site in addition to the result URL.
var contactPaths = []string{"/contact", "/contact-us", "/about"}

// Config tunes a Finder.
type Config struct {
	// MaxPages caps the pages fetched per site (default 6).
	MaxPages    int
	Concurrency int
	// RespectRobots enables robots.txt checks and sitemap seeding.
	RespectRobots bool
	UserAgent     string
	// MaxSitemapSeeds caps the contact-like sitemap URLs added as seeds (default 3).
	MaxSitemapSeeds int
}

// Finder crawls a site one level deep, following contact and about links,
// until it sees an email address.
type Finder struct {
	fetcher *scraper.Fetcher
	cfg     Config
	logger  *slog.Logger
}

func NewFinder(fetcher *scraper.Fetcher, cfg Config, logger *slog.Logger) *Finder {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 6
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.MaxSitemapSeeds <= 0 {
		cfg.MaxSitemapSeeds = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{fetcher: fetcher, cfg: cfg, logger: logger}
}

// FindContact returns the first email and phone seen on siteURL's host.
// Failures yield an empty Contact.
func (f *Finder) FindContact(ctx context.Context, siteURL string) extract.Contact {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return extract.Contact{}
	}
	origin := u.Scheme + "://" + u.Host

	crawler := scraper.NewCrawler(scraper.CrawlConfig{
		MaxDepth:      1,
		MaxPages:      f.cfg.MaxPages,
		Concurrency:   f.cfg.Concurrency,
		Domains:       []string{u.Hostname()},
		RespectRobots: f.cfg.RespectRobots,
		UserAgent:     f.cfg.UserAgent,
		QueueSize:     64,
		Follow:        contactLike,
	}, f.fetcher, f.logger)

	seeds := []string{siteURL}
	for _, p := range contactPaths {
		seeds = append(seeds, origin+p)
	}
	seeds = append(seeds, f.sitemapSeeds(ctx, crawler, origin)...)

	var (
		mu    sync.Mutex
		found extract.Contact
	)
	err = crawler.Run(ctx, seeds, func(_ context.Context, res *scraper.Response) bool {
		if res.Err() != nil {
			return true
		}
		c := scanPage(res.Body)
		mu.Lock()
		defer mu.Unlock()
		if found.Email == "" {
			found.Email = c.Email
		}
		if found.Phone == "" {
			found.Phone = c.Phone
		}
		return found.Email == ""
	})
	if err != nil {
		f.logger.Debug("contact crawl ended early", "site", origin, "error", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return found
}

func (f *Finder) sitemapSeeds(ctx context.Context, c *scraper.Crawler, origin string) []string {
	robots := c.Robots()
	if robots == nil {
		return nil
	}
	sm := scraper.NewSitemapFetcher(f.fetcher, f.logger)
	var seeds []string
	for _, loc := range robots.Sitemaps(ctx, origin) {
		urls, err := sm.FetchSitemap(ctx, loc)
		if err != nil {
			f.logger.Debug("sitemap unavailable", "sitemap", loc, "error", err)
			continue
		}
		for _, u := range urls {
			if contactLike(u) {
				seeds = append(seeds, u)
				if len(seeds) == f.cfg.MaxSitemapSeeds {
					return seeds
				}
			}
		}
	}
	return seeds
}

func contactLike(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.Contains(p, "contact") || strings.Contains(p, "about")
}

// scanPage reads mailto and tel links first, then the visible text.
func scanPage(body []byte) extract.Contact {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extract.Scan(string(body))
	}

	var c extract.Contact
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		c.Email = extract.Email(strings.TrimPrefix(href, "mailto:"))
		return c.Email == ""
	})
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		c.Phone = extract.Phone(strings.TrimPrefix(href, "tel:"))
		return c.Phone == ""
	})

	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	if c.Email == "" {
		c.Email = extract.Email(text)
	}
	if c.Phone == "" {
		c.Phone = extract.Phone(text)
	}
	return c
}
