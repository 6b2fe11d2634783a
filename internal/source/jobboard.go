package source

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultJobBoardBaseURL = "https://www.gozambiajobs.com"
	jobBoardMaxPostings    = 20
	// fallbackWindow is the slice of raw page searched for an email when
	// postings could not be matched to their cards.
	fallbackWindow = 500
)

const (
	vacancySel = `a[href*="/vacancy/"]`
	companySel = `span[class*="company"]`
)

// JobBoardAdapter treats employers advertising marketing and design roles
// as prospects.
type JobBoardAdapter struct {
	fetcher *scraper.Fetcher
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewJobBoard(f *scraper.Fetcher, cfg Config, logger *slog.Logger) *JobBoardAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobBoardAdapter{
		fetcher: f,
		cfg:     cfg.withDefaults(DefaultJobBoardBaseURL, 15*time.Second),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *JobBoardAdapter) ID() string             { return GoZambiaJobs }
func (a *JobBoardAdapter) Label() string          { return "GoZambiaJobs" }
func (a *JobBoardAdapter) Timeout() time.Duration { return a.cfg.Timeout }

type posting struct {
	title   string
	href    string
	company string
	email   string
}

func (a *JobBoardAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	term := strings.TrimSpace(q.Industry + " marketing design graphic")
	res := a.fetcher.Get(ctx, a.cfg.BaseURL+"/search/"+url.PathEscape(term), nil)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("gozambiajobs: %w", err)
	}

	postings, err := parseJobBoard(res.Body)
	if err != nil {
		return nil, fmt.Errorf("gozambiajobs: %w", err)
	}

	now := a.now().UTC()
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	base, _ := url.Parse(a.cfg.BaseURL)
	leads := make([]lead.Raw, 0, len(postings))
	for i, p := range postings {
		company := orDefault(p.company, "Unknown Company")
		link := p.href
		if base != nil {
			if ref, err := url.Parse(p.href); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		leads = append(leads, lead.Raw{
			ID:        "gzj-" + strconv.Itoa(i) + "-" + stamp,
			Title:     p.title,
			Body:      fmt.Sprintf("%s is hiring: %q. Companies hiring for marketing/design roles are potential clients who need creative services.", company, p.title),
			Author:    company,
			Source:    "GoZambiaJobs",
			SourceURL: link,
			FoundAt:   now,
			Email:     p.email,
		})
	}
	return leads, nil
}

// parseJobBoard reads vacancy anchors and the company named on the same
// card. If no card carries a company, companies are zipped to postings by
// position and emails are looked for in a fixed window of the raw page.
func parseJobBoard(page []byte) ([]posting, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	var postings []posting
	seen := make(map[string]bool)
	paired := 0
	doc.Find(vacancySel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := collapse(s.Text())
		href := s.AttrOr("href", "")
		if utf8.RuneCountInString(title) <= 5 || seen[href] {
			return true
		}
		seen[href] = true

		p := posting{title: title, href: href}
		if block, span := enclosingBlock(s, vacancySel, companySel, nil); block != nil {
			p.company = collapse(span.Text())
			p.email = extract.Email(block.Text())
			paired++
		}
		postings = append(postings, p)
		return len(postings) < jobBoardMaxPostings
	})

	if paired > 0 || len(postings) == 0 {
		return postings, nil
	}

	var companies []string
	doc.Find(companySel).Each(func(_ int, s *goquery.Selection) {
		companies = append(companies, collapse(s.Text()))
	})
	for i := range postings {
		if i < len(companies) {
			postings[i].company = companies[i]
		}
		postings[i].email = extract.Email(window(page, i*fallbackWindow, (i+1)*fallbackWindow))
	}
	return postings, nil
}

func window(b []byte, from, to int) string {
	if from >= len(b) {
		return ""
	}
	if to > len(b) {
		to = len(b)
	}
	return string(b[from:to])
}
