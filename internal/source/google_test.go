package source

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/serp"
)

type fakeProvider struct {
	query   string
	limit   int
	results []serp.Result
	err     error
}

func (f *fakeProvider) Search(_ context.Context, query string, limit int) ([]serp.Result, error) {
	f.query, f.limit = query, limit
	return f.results, f.err
}

type fakeFinder struct {
	mu    sync.Mutex
	calls []string
	slow  string
}

func (f *fakeFinder) FindContact(ctx context.Context, site string) extract.Contact {
	f.mu.Lock()
	f.calls = append(f.calls, site)
	f.mu.Unlock()
	if site == f.slow {
		<-ctx.Done()
		return extract.Contact{}
	}
	return extract.Contact{Email: "info@" + strings.TrimPrefix(site, "https://"), Phone: "+260 97 1234567"}
}

func TestSearchQuery(t *testing.T) {
	got := SearchQuery("", "")
	want := `business Zambia "need" OR "looking for" OR "hiring" graphic designer OR marketing OR advertising`
	if got != want {
		t.Errorf("query = %s", got)
	}
	if !strings.HasPrefix(SearchQuery("Retail", "Lusaka"), "Retail Lusaka ") {
		t.Error("industry and location should lead the query")
	}
}

func TestGoogle_Fetch(t *testing.T) {
	p := &fakeProvider{results: []serp.Result{
		{URL: "https://www.acme.co.zm/", Title: "Acme Printing"},
		{URL: "https://crumbs.example.com/menu", Title: "Crumbs"},
	}}
	a := NewGoogle(p, GoogleConfig{}, nil)

	leads, err := a.Fetch(context.Background(), Query{Industry: "Retail", Location: "Ndola", Keywords: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if p.limit != googleMaxResults || strings.Contains(p.query, "ignored") {
		t.Errorf("provider called with %q / %d", p.query, p.limit)
	}
	if len(leads) != 2 {
		t.Fatalf("leads = %+v", leads)
	}
	l := leads[0]
	if l.Author != "acme.co.zm" || l.CompanyWebsite != "https://www.acme.co.zm/" || l.SourceURL != l.CompanyWebsite || l.Source != "Google" {
		t.Errorf("lead = %+v", l)
	}
	if !strings.Contains(l.Body, `"Acme Printing"`) || !strings.Contains(l.Body, "in Ndola.") {
		t.Errorf("body = %s", l.Body)
	}
	if l.Email != "" || l.Phone != "" {
		t.Error("no finder configured, contacts should be empty")
	}
}

func TestGoogle_Enrichment(t *testing.T) {
	p := &fakeProvider{results: []serp.Result{
		{URL: "https://a.example", Title: "A"},
		{URL: "https://slow.example", Title: "Slow"},
	}}
	finder := &fakeFinder{slow: "https://slow.example"}
	a := NewGoogle(p, GoogleConfig{Finder: finder, EnrichBudget: 50 * time.Millisecond}, nil)

	start := time.Now()
	leads, err := a.Fetch(context.Background(), Query{})
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > time.Second {
		t.Error("enrichment should stop at its budget")
	}
	if leads[0].Email != "info@a.example" || leads[0].Phone == "" {
		t.Errorf("enriched lead = %+v", leads[0])
	}
	if leads[1].Email != "" {
		t.Errorf("slow site should have no contact: %+v", leads[1])
	}
}

func TestGoogle_ProviderError(t *testing.T) {
	a := NewGoogle(&fakeProvider{err: errors.New("blocked")}, GoogleConfig{}, nil)
	if _, err := a.Fetch(context.Background(), Query{}); err == nil {
		t.Error("expected provider error to propagate to the boundary")
	}
}
