package source

import (
	"context"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// PlaceholderAdapter stands in for Apollo when no API key is configured. It
// yields a single lead telling the operator where to get a key, and never
// touches the network.
type PlaceholderAdapter struct {
	SignupURL string
	now       func() time.Time
}

func NewPlaceholder(signupURL string) *PlaceholderAdapter {
	if signupURL == "" {
		signupURL = DefaultApolloSignupURL
	}
	return &PlaceholderAdapter{SignupURL: signupURL, now: time.Now}
}

func (p *PlaceholderAdapter) ID() string             { return Apollo }
func (p *PlaceholderAdapter) Label() string          { return "Apollo" }
func (p *PlaceholderAdapter) Timeout() time.Duration { return 0 }

func (p *PlaceholderAdapter) Fetch(context.Context, Query) ([]lead.Raw, error) {
	return []lead.Raw{{
		ID:        "apollo-setup",
		Title:     "Connect Apollo.io to unlock LinkedIn and company contacts",
		Body:      "No Apollo.io API key is configured. Create a key at " + p.SignupURL + " and set apollo.api_key (or LEADSCOUT_APOLLO_API_KEY) to search decision makers with verified emails and phone numbers.",
		Author:    "Apollo.io",
		Source:    "Apollo",
		SourceURL: p.SignupURL,
		FoundAt:   p.now().UTC(),
	}}, nil
}
