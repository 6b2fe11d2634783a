// Package serp turns a search-engine results page into a list of organic
// result links.
package serp

import (
	"context"
	"net/url"
	"strings"
)

// Result is one organic search hit.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Host returns the result's hostname without a leading "www.".
func (r Result) Host() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Provider runs a query and returns at most limit results.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}
