package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/FranksOps/leadscout/pkg/useragent"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRedditBaseURL = "https://www.reddit.com"
	redditMinSelftext    = 50
)

// DefaultSubreddits are searched in addition to the site-wide query.
var DefaultSubreddits = []string{"smallbusiness", "entrepreneur", "marketing", "startups"}

// RedditAdapter searches the public Reddit JSON listing API.
type RedditAdapter struct {
	fetcher    *scraper.Fetcher
	cfg        Config
	subreddits []string
	logger     *slog.Logger
	now        func() time.Time
}

func NewReddit(f *scraper.Fetcher, cfg Config, subreddits []string, logger *slog.Logger) *RedditAdapter {
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	if len(subreddits) > 4 {
		subreddits = subreddits[:4]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedditAdapter{
		fetcher:    f,
		cfg:        cfg.withDefaults(DefaultRedditBaseURL, 10*time.Second),
		subreddits: subreddits,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *RedditAdapter) ID() string             { return Reddit }
func (r *RedditAdapter) Label() string          { return "Reddit" }
func (r *RedditAdapter) Timeout() time.Duration { return r.cfg.Timeout }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

func (r *RedditAdapter) queryURLs(keywords string) []string {
	q := url.QueryEscape(keywords)
	urls := []string{r.cfg.BaseURL + "/search.json?q=" + q + "&sort=new&limit=30&t=month"}
	for _, sub := range r.subreddits {
		urls = append(urls, r.cfg.BaseURL+"/r/"+url.PathEscape(sub)+"/search.json?q="+q+"&restrict_sr=1&sort=new&limit=20&t=month")
	}
	return urls
}

// Fetch runs the site-wide and subreddit searches concurrently, then merges
// them in query order, dropping repeated posts and posts with little text.
// It fails only if every query failed.
func (r *RedditAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	urls := r.queryURLs(q.Keywords)
	listings := make([][]redditPost, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			listings[i], errs[i] = r.search(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			r.logger.Debug("reddit query failed", "url", urls[i], "err", err)
		}
	}
	if failed == len(urls) {
		return nil, fmt.Errorf("reddit: all %d queries failed: %w", failed, errors.Join(errs...))
	}

	now := r.now().UTC()
	seen := make(map[string]struct{})
	var leads []lead.Raw
	for _, posts := range listings {
		for _, p := range posts {
			if p.ID == "" || utf8.RuneCountInString(p.Selftext) < redditMinSelftext {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			leads = append(leads, r.toLead(p, now))
		}
	}
	return leads, nil
}

func (r *RedditAdapter) search(ctx context.Context, u string) ([]redditPost, error) {
	res := r.fetcher.Get(ctx, u, http.Header{
		"User-Agent": {useragent.Identify},
		"Accept":     {"application/json"},
	})
	if err := res.Err(); err != nil {
		return nil, err
	}
	var listing redditListing
	if err := json.Unmarshal(res.Body, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		posts = append(posts, c.Data)
	}
	return posts, nil
}

func (r *RedditAdapter) toLead(p redditPost, now time.Time) lead.Raw {
	found := now
	if p.CreatedUTC > 0 {
		sec := int64(p.CreatedUTC)
		found = time.Unix(sec, int64((p.CreatedUTC-float64(sec))*1e9)).UTC()
	}
	c := extract.Scan(p.Title + " " + p.Selftext)
	return lead.Raw{
		ID:             "reddit-" + p.ID,
		Title:          p.Title,
		Body:           lead.Truncate(p.Selftext, lead.MaxBodyLen),
		Author:         orDefault(p.Author, "anonymous"),
		Source:         "Reddit",
		SourceURL:      "https://reddit.com" + p.Permalink,
		FoundAt:        found,
		Email:          c.Email,
		Phone:          c.Phone,
		CompanyWebsite: c.Website,
	}
}
