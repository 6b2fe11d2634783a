package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultFiverrBaseURL = "https://www.fiverr.com"
	fiverrMaxSellers     = 15
)

var (
	sellerHref    = regexp.MustCompile(`^/([a-zA-Z0-9_]+)\?`)
	sellerHrefRaw = regexp.MustCompile(`href="/([a-zA-Z0-9_]+)\?`)
)

// Paths that look like seller links but are site navigation.
var fiverrReserved = map[string]bool{"search": true, "categories": true}

// FiverrAdapter scrapes the public gig search page.
type FiverrAdapter struct {
	fetcher *scraper.Fetcher
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewFiverr(f *scraper.Fetcher, cfg Config, logger *slog.Logger) *FiverrAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FiverrAdapter{
		fetcher: f,
		cfg:     cfg.withDefaults(DefaultFiverrBaseURL, 15*time.Second),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *FiverrAdapter) ID() string             { return Fiverr }
func (a *FiverrAdapter) Label() string          { return "Fiverr" }
func (a *FiverrAdapter) Timeout() time.Duration { return a.cfg.Timeout }

type gig struct {
	seller string
	title  string
}

func (a *FiverrAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	term := url.QueryEscape(collapse(orDefault(q.Industry, "graphic design") + " " + q.Keywords))
	target := a.cfg.BaseURL + "/search/gigs?query=" + term +
		"&source=top-bar&search_in=everywhere&search-autocomplete-original-term=" + term

	res := a.fetcher.Get(ctx, target, http.Header{
		"Accept":          {"text/html,application/xhtml+xml"},
		"Accept-Language": {"en-US,en;q=0.9"},
	})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("fiverr: %w", err)
	}

	gigs, err := parseFiverr(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fiverr: %w", err)
	}

	now := a.now().UTC()
	industry := orDefault(q.Industry, "design")
	leads := make([]lead.Raw, 0, len(gigs))
	for i, g := range gigs {
		title := g.title
		if title == "" {
			title = "Fiverr seller: " + g.seller
		}
		leads = append(leads, lead.Raw{
			ID:        "fiverr-" + g.seller + "-" + strconv.Itoa(i),
			Title:     title,
			Body:      fmt.Sprintf("Fiverr seller %q found searching for %q services. This person is either offering or looking for creative services on Fiverr.", g.seller, industry),
			Author:    g.seller,
			Source:    "Fiverr",
			SourceURL: a.cfg.BaseURL + "/" + g.seller,
			FoundAt:   now,
		})
	}
	return leads, nil
}

// parseFiverr pairs each gig heading with the seller link in the same card.
// When no card yields a pair, it falls back to zipping the page's headings
// and seller links by position.
func parseFiverr(page []byte) ([]gig, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var gigs []gig
	seen := make(map[string]bool)
	isSeller := func(a *goquery.Selection) bool { return sellerFromHref(a.AttrOr("href", "")) != "" }
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		_, link := enclosingBlock(h, "h3", "a[href]", isSeller)
		if link == nil {
			return true
		}
		seller := sellerFromHref(link.AttrOr("href", ""))
		if !seen[seller] {
			seen[seller] = true
			gigs = append(gigs, gig{seller: seller, title: collapse(h.Text())})
		}
		return len(gigs) < fiverrMaxSellers
	})
	if len(gigs) > 0 {
		return gigs, nil
	}

	var titles []string
	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		titles = append(titles, collapse(h.Text()))
	})
	for _, m := range sellerHrefRaw.FindAllSubmatch(page, -1) {
		seller := string(m[1])
		if fiverrReserved[seller] || seen[seller] {
			continue
		}
		seen[seller] = true
		g := gig{seller: seller}
		if i := len(gigs); i < len(titles) {
			g.title = titles[i]
		}
		gigs = append(gigs, g)
		if len(gigs) == fiverrMaxSellers {
			break
		}
	}
	return gigs, nil
}

func sellerFromHref(href string) string {
	m := sellerHref.FindStringSubmatch(href)
	if m == nil || fiverrReserved[m[1]] {
		return ""
	}
	return m[1]
}
