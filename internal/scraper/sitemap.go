package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

// maxIndexDepth bounds sitemap-index recursion.
const maxIndexDepth = 2

type SitemapFetcher struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

func NewSitemapFetcher(fetcher *Fetcher, logger *slog.Logger) *SitemapFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapFetcher{fetcher: fetcher, logger: logger}
}

// FetchSitemap returns the page URLs listed in a sitemap, following sitemap
// indexes up to two levels deep.
func (s *SitemapFetcher) FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	return s.fetch(ctx, sitemapURL, 0)
}

func (s *SitemapFetcher) fetch(ctx context.Context, sitemapURL string, depth int) ([]string, error) {
	s.logger.Debug("fetching sitemap", "url", sitemapURL, "depth", depth)

	res := s.fetcher.Get(ctx, sitemapURL, nil)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("sitemap: %w", err)
	}

	var urls []string
	err := sitemap.Parse(bytes.NewReader(res.Body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if err == nil && len(urls) > 0 {
		return urls, nil
	}

	var nested []string
	indexErr := sitemap.ParseIndex(bytes.NewReader(res.Body), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		return nil, fmt.Errorf("sitemap: %s is neither a sitemap nor an index", sitemapURL)
	}
	if depth >= maxIndexDepth {
		return nil, fmt.Errorf("sitemap: index nesting deeper than %d at %s", maxIndexDepth, sitemapURL)
	}

	for _, n := range nested {
		found, err := s.fetch(ctx, n, depth+1)
		if err != nil {
			s.logger.Warn("nested sitemap failed", "url", n, "error", err)
			continue
		}
		urls = append(urls, found...)
	}
	return urls, nil
}
