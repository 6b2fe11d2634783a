package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

const DefaultGoogleBaseURL = "https://www.google.com"

// ExcludedHosts are results that point back at the engine or at video
// hosting rather than at a business.
var ExcludedHosts = []string{"google.com", "youtube.com"}

// GoogleScrape queries the public Google results page through a Fetcher.
type GoogleScrape struct {
	Fetcher *scraper.Fetcher
	// BaseURL defaults to DefaultGoogleBaseURL.
	BaseURL string
	Logger  *slog.Logger
}

var _ Provider = (*GoogleScrape)(nil)

func (g *GoogleScrape) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 0 {
		return nil, fmt.Errorf("serp: limit cannot be negative: %d", limit)
	}
	base := g.BaseURL
	if base == "" {
		base = DefaultGoogleBaseURL
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	target := strings.TrimSuffix(base, "/") + "/search?q=" + url.QueryEscape(query) + "&num=20"
	res := g.Fetcher.Get(ctx, target, http.Header{"Accept-Language": {"en-US,en;q=0.9"}})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("serp: google: %w", err)
	}

	results, err := ParseGoogle(res.Body, limit)
	if err != nil {
		return nil, err
	}
	logger.Debug("google results parsed", "query", query, "results", len(results))
	return results, nil
}

// ParseGoogle extracts organic results from a results page. Google wraps
// outbound links as /url?q=<target>; plain absolute hrefs are accepted too.
// Only anchors that contain an h3 heading count as results.
func ParseGoogle(page []byte, limit int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("serp: parse results page: %w", err)
	}

	var out []Result
	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		h3 := a.Find("h3").First()
		if h3.Length() == 0 {
			return true
		}
		href, _ := a.Attr("href")
		target := resultTarget(href)
		if target == "" {
			return true
		}
		r := Result{URL: target, Title: strings.TrimSpace(h3.Text())}
		if excluded(r.Host()) {
			return true
		}
		if _, dup := seen[r.URL]; dup {
			return true
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
		return true
	})
	return out, nil
}

func resultTarget(href string) string {
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return ""
		}
		href = u.Query().Get("q")
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func excluded(host string) bool {
	for _, h := range ExcludedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
