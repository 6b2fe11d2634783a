package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/scraper"
)

func newFinder(t *testing.T, cfg Config) *Finder {
	t.Helper()
	f, err := scraper.NewFetcher(scraper.FetchConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return NewFinder(f, cfg, nil)
}

func page(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><body>%s</body></html>", body)
}

func TestFindContact_ContactPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(w, `<p>Welcome</p><a href="/contact">Contact</a>`)
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<a href="mailto:sales@acme.example?subject=hi">Email us</a> <a href="tel:+260971234567">Call</a>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newFinder(t, Config{}).FindContact(context.Background(), ts.URL+"/")
	if c.Email != "sales@acme.example" {
		t.Errorf("email = %q", c.Email)
	}
	if c.Phone != "+260971234567" {
		t.Errorf("phone = %q", c.Phone)
	}
}

func TestFindContact_SitemapSeed(t *testing.T) {
	var ts *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nDisallow: /private\n\nSitemap: %s/sitemap.xml\n", ts.URL)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/products</loc></url>
  <url><loc>%[1]s/company/contact-details</loc></url>
</urlset>`, ts.URL)
	})
	mux.HandleFunc("/company/contact-details", func(w http.ResponseWriter, r *http.Request) {
		page(w, `<p>Write to hello@bright.example or call +260 97 1234567</p>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(w, `<p>Bright Signs</p>`)
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	c := newFinder(t, Config{RespectRobots: true}).FindContact(context.Background(), ts.URL)
	if c.Email != "hello@bright.example" {
		t.Errorf("email = %q", c.Email)
	}
	if c.Phone != "+260 97 1234567" {
		t.Errorf("phone = %q", c.Phone)
	}
}

func TestFindContact_RobotsDisallow(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page(w, `info@hidden.example`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := newFinder(t, Config{RespectRobots: true}).FindContact(context.Background(), ts.URL)
	if c.Email != "" {
		t.Errorf("email = %q, want none", c.Email)
	}
	if hits.Load() != 0 {
		t.Errorf("disallowed pages fetched %d times", hits.Load())
	}
}

func TestFindContact_StopsAtPageBudget(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page(w, `<a href="/about/1">a</a><a href="/about/2">b</a><a href="/about/3">c</a><a href="/contact/4">d</a>`)
	}))
	defer ts.Close()

	c := newFinder(t, Config{MaxPages: 2, Concurrency: 1}).FindContact(context.Background(), ts.URL)
	if c.Email != "" {
		t.Errorf("email = %q", c.Email)
	}
	if n := hits.Load(); n > 2 {
		t.Errorf("fetched %d pages, budget 2", n)
	}
}

func TestFindContact_BadURL(t *testing.T) {
	c := newFinder(t, Config{}).FindContact(context.Background(), "not a url")
	if c.Email != "" || c.Phone != "" {
		t.Errorf("contact = %+v", c)
	}
}

func TestContactLike(t *testing.T) {
	for link, want := range map[string]bool{
		"https://a.example/Contact-Us":    true,
		"https://a.example/about":         true,
		"https://a.example/products":      false,
		"https://contact.example/pricing": false,
	} {
		if got := contactLike(link); got != want {
			t.Errorf("contactLike(%s) = %v", link, got)
		}
	}
}
