package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/serp"
	"golang.org/x/sync/errgroup"
)

const googleMaxResults = 15

// ContactFinder looks up an email or phone for a company website.
type ContactFinder interface {
	FindContact(ctx context.Context, siteURL string) extract.Contact
}

// GoogleConfig extends Config with optional website enrichment.
type GoogleConfig struct {
	Config
	// Finder, when set, is asked for contacts on every result's site.
	Finder ContactFinder
	// EnrichBudget bounds the enrichment phase. Zero means half the timeout.
	EnrichBudget time.Duration
	// EnrichConcurrency caps concurrent site lookups (default 4).
	EnrichConcurrency int
}

// GoogleAdapter turns organic search results into company leads.
type GoogleAdapter struct {
	provider serp.Provider
	cfg      GoogleConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewGoogle wraps a results provider. BaseURL is not used here; it belongs
// to the provider.
func NewGoogle(p serp.Provider, cfg GoogleConfig, logger *slog.Logger) *GoogleAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Config = cfg.Config.withDefaults(serp.DefaultGoogleBaseURL, 10*time.Second)
	if cfg.EnrichBudget <= 0 {
		cfg.EnrichBudget = cfg.Timeout / 2
	}
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 4
	}
	return &GoogleAdapter{provider: p, cfg: cfg, logger: logger, now: time.Now}
}

func (a *GoogleAdapter) ID() string             { return Google }
func (a *GoogleAdapter) Label() string          { return "Google" }
func (a *GoogleAdapter) Timeout() time.Duration { return a.cfg.Timeout }

// SearchQuery is the intent query sent to the engine. The keyword string is
// not used; the engine does better with plain intent phrases.
func SearchQuery(industry, location string) string {
	return orDefault(industry, "business") + " " + orDefault(location, "Zambia") +
		` "need" OR "looking for" OR "hiring" graphic designer OR marketing OR advertising`
}

func (a *GoogleAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	results, err := a.provider.Search(ctx, SearchQuery(q.Industry, q.Location), googleMaxResults)
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	contacts := a.enrich(ctx, results)

	now := a.now().UTC()
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	location := orDefault(q.Location, "Zambia")
	leads := make([]lead.Raw, 0, len(results))
	for i, r := range results {
		leads = append(leads, lead.Raw{
			ID:             "google-" + strconv.Itoa(i) + "-" + stamp,
			Title:          r.Title,
			Body:           fmt.Sprintf("Found via Google search: %q. This result appeared when searching for businesses needing design/marketing services in %s.", r.Title, location),
			Author:         r.Host(),
			Source:         "Google",
			SourceURL:      r.URL,
			FoundAt:        now,
			Email:          contacts[i].Email,
			Phone:          contacts[i].Phone,
			CompanyWebsite: r.URL,
		})
	}
	return leads, nil
}

// enrich looks up contacts for every result within EnrichBudget. Lookups
// that miss the budget leave their slot empty.
func (a *GoogleAdapter) enrich(ctx context.Context, results []serp.Result) []extract.Contact {
	contacts := make([]extract.Contact, len(results))
	if a.cfg.Finder == nil || len(results) == 0 {
		return contacts
	}

	ectx, cancel := context.WithTimeout(ctx, a.cfg.EnrichBudget)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(a.cfg.EnrichConcurrency)
	for i, r := range results {
		g.Go(func() error {
			if ectx.Err() != nil {
				return nil
			}
			contacts[i] = a.cfg.Finder.FindContact(ectx, r.URL)
			return nil
		})
	}
	_ = g.Wait()

	found := 0
	for _, c := range contacts {
		if c.Email != "" || c.Phone != "" {
			found++
		}
	}
	a.logger.Debug("google enrichment done", "results", len(results), "with_contact", found)
	return contacts
}
