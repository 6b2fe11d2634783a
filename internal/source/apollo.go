package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/scraper"
)

const (
	DefaultApolloBaseURL   = "https://api.apollo.io"
	DefaultApolloSignupURL = "https://app.apollo.io/#/settings/integrations/api"
	apolloPageSize         = 25
	apolloDefaultKeywords  = "marketing design advertising"
	apolloLockedEmail      = "email_not_unlocked"
)

// ApolloTitles are the decision-maker titles searched for.
var ApolloTitles = []string{"CEO", "Founder", "Owner", "Marketing Manager", "Marketing Director", "CMO", "Business Owner"}

// ErrNoCredential is returned when the adapter is invoked without an API key.
var ErrNoCredential = errors.New("apollo: api key required")

// ApolloAdapter calls the Apollo.io people search API.
type ApolloAdapter struct {
	fetcher *scraper.Fetcher
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewApollo(f *scraper.Fetcher, cfg Config, logger *slog.Logger) *ApolloAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApolloAdapter{
		fetcher: f,
		cfg:     cfg.withDefaults(DefaultApolloBaseURL, 20*time.Second),
		logger:  logger,
		now:     time.Now,
	}
}

func (a *ApolloAdapter) ID() string             { return Apollo }
func (a *ApolloAdapter) Label() string          { return "Apollo" }
func (a *ApolloAdapter) Timeout() time.Duration { return a.cfg.Timeout }

type apolloSearch struct {
	APIKey          string   `json:"api_key"`
	QKeywords       string   `json:"q_keywords"`
	PersonTitles    []string `json:"person_titles"`
	PersonLocations []string `json:"person_locations"`
	PerPage         int      `json:"per_page"`
	Page            int      `json:"page"`
}

type apolloPerson struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Title        string `json:"title"`
	Email        string `json:"email"`
	LinkedinURL  string `json:"linkedin_url"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PhoneNumbers []struct {
		SanitizedNumber string `json:"sanitized_number"`
	} `json:"phone_numbers"`
	Organization *struct {
		Name             string `json:"name"`
		ShortDescription string `json:"short_description"`
		WebsiteURL       string `json:"website_url"`
		PrimaryDomain    string `json:"primary_domain"`
	} `json:"organization"`
}

func (a *ApolloAdapter) Fetch(ctx context.Context, q Query) ([]lead.Raw, error) {
	if q.Credential == "" {
		return nil, ErrNoCredential
	}

	payload, err := json.Marshal(apolloSearch{
		APIKey:          q.Credential,
		QKeywords:       orDefault(q.Keywords, apolloDefaultKeywords),
		PersonTitles:    ApolloTitles,
		PersonLocations: []string{orDefault(q.Location, "Zambia")},
		PerPage:         apolloPageSize,
		Page:            1,
	})
	if err != nil {
		return nil, fmt.Errorf("apollo: encode request: %w", err)
	}

	res := a.fetcher.Do(ctx, scraper.Request{
		Method: http.MethodPost,
		URL:    a.cfg.BaseURL + "/v1/mixed_people/search",
		Header: http.Header{
			"Content-Type":  {"application/json"},
			"Accept":        {"application/json"},
			"Cache-Control": {"no-cache"},
			"X-Api-Key":     {q.Credential},
		},
		Body:    payload,
		NoCache: true,
	})
	if err := res.Err(); err != nil {
		if res.StatusCode != 0 {
			a.logger.Debug("apollo error body", "status", res.StatusCode, "body", lead.Truncate(string(res.Body), 300))
		}
		return nil, fmt.Errorf("apollo: %w", err)
	}

	var body struct {
		People []apolloPerson `json:"people"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return nil, fmt.Errorf("apollo: decode response: %w", err)
	}

	now := a.now().UTC()
	leads := make([]lead.Raw, 0, len(body.People))
	for i, p := range body.People {
		leads = append(leads, apolloLead(p, i, now))
	}
	return leads, nil
}

func apolloLead(p apolloPerson, i int, now time.Time) lead.Raw {
	name := collapse(p.FirstName + " " + p.LastName)
	var orgName, orgDesc, website string
	if o := p.Organization; o != nil {
		orgName, orgDesc = o.Name, o.ShortDescription
		switch {
		case o.WebsiteURL != "":
			website = o.WebsiteURL
		case o.PrimaryDomain != "":
			website = "https://" + o.PrimaryDomain
		}
	}

	id := p.ID
	if id == "" {
		id = fmt.Sprint(i)
	}
	src := "Apollo"
	if p.LinkedinURL != "" {
		src = "LinkedIn"
	}
	email := p.Email
	if strings.HasPrefix(email, apolloLockedEmail) {
		email = ""
	}
	var phone string
	if len(p.PhoneNumbers) > 0 {
		phone = p.PhoneNumbers[0].SanitizedNumber
	}

	return lead.Raw{
		ID:    "apollo-" + id,
		Title: collapse(name + " - " + orDefault(p.Title, "Unknown Role")),
		Body: collapse(fmt.Sprintf("%s is %s at %s. %s Located in %s %s %s.",
			name, orDefault(p.Title, "a professional"), orDefault(orgName, "Unknown Company"),
			orgDesc, p.City, p.State, p.Country)),
		Author:         name,
		Source:         src,
		SourceURL:      p.LinkedinURL,
		FoundAt:        now,
		Email:          email,
		Phone:          phone,
		CompanyWebsite: website,
	}
}
