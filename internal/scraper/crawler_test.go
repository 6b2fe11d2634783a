package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func siteServer() *httptest.Server {
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<a href="/about">About</a> <a href="/contact#form">Contact</a> <a href="https://elsewhere.test/">x</a>`))
	mux.HandleFunc("/about", page(`<a href="/team">Team</a> <a href="/">Home</a>`))
	mux.HandleFunc("/contact", page(`Email us: hello@acme.test`))
	mux.HandleFunc("/team", page(`deep`))
	mux.HandleFunc("/private", page(`secret`))
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	return httptest.NewServer(mux)
}

func crawl(t *testing.T, cfg CrawlConfig, seeds []string, visit VisitFunc) []string {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	c := NewCrawler(cfg, newTestFetcher(t, FetchConfig{}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Run(ctx, seeds, func(ctx context.Context, res *Response) bool {
		mu.Lock()
		seen = append(seen, res.URL)
		mu.Unlock()
		if visit != nil {
			return visit(ctx, res)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return seen
}

func TestCrawler_DepthAndScope(t *testing.T) {
	ts := siteServer()
	defer ts.Close()
	host := strings.TrimPrefix(ts.URL, "http://")
	host = host[:strings.Index(host, ":")]

	seen := crawl(t, CrawlConfig{MaxDepth: 1, Domains: []string{host}}, []string{ts.URL + "/"}, nil)

	// "/", "/about", "/contact"; "/team" is depth 2, elsewhere.test out of scope
	if len(seen) != 3 {
		t.Errorf("visited %v", seen)
	}
	for _, u := range seen {
		if strings.Contains(u, "#") || strings.HasSuffix(u, "/team") {
			t.Errorf("unexpected visit %s", u)
		}
	}
}

func TestCrawler_VisitorStops(t *testing.T) {
	ts := siteServer()
	defer ts.Close()

	seen := crawl(t, CrawlConfig{MaxDepth: 3, Concurrency: 1}, []string{ts.URL + "/contact", ts.URL + "/about"},
		func(_ context.Context, res *Response) bool {
			return !strings.Contains(string(res.Body), "@")
		})
	if len(seen) != 1 {
		t.Errorf("crawl should stop after the first page with an email, visited %v", seen)
	}
}

func TestCrawler_MaxPages(t *testing.T) {
	ts := siteServer()
	defer ts.Close()

	seen := crawl(t, CrawlConfig{MaxDepth: 5, MaxPages: 2, Concurrency: 1}, []string{ts.URL + "/"}, nil)
	if len(seen) > 2 {
		t.Errorf("page budget exceeded: %v", seen)
	}
}

func TestCrawler_RespectsRobots(t *testing.T) {
	ts := siteServer()
	defer ts.Close()

	seen := crawl(t, CrawlConfig{RespectRobots: true}, []string{ts.URL + "/private", ts.URL + "/contact"}, nil)
	if len(seen) != 1 || !strings.HasSuffix(seen[0], "/contact") {
		t.Errorf("visited %v", seen)
	}
}

func TestCrawler_FollowFilter(t *testing.T) {
	ts := siteServer()
	defer ts.Close()

	seen := crawl(t, CrawlConfig{MaxDepth: 1, Follow: func(link string) bool {
		return strings.Contains(link, "contact")
	}}, []string{ts.URL + "/"}, nil)
	if len(seen) != 2 {
		t.Errorf("visited %v", seen)
	}
}

func TestExtractLinks(t *testing.T) {
	links := extractLinks("http://a.test/dir/", []byte(`<a href="x">1</a><a href="/y">2</a><a href="http://b.test">3</a>`))
	want := []string{"http://a.test/dir/x", "http://a.test/y", "http://b.test"}
	if fmt.Sprint(links) != fmt.Sprint(want) {
		t.Errorf("links = %v", links)
	}
}
