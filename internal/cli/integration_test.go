//go:build integration

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.HTTP.RequestsPerSecond = 0
	cfg.HTTP.Cache = "none"
	return cfg
}

func TestIntegration_ScrapeAndStore(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"children":[
 {"data":{"id":"a1","title":"Struggling bakery","author":"baker","permalink":"/r/smallbusiness/comments/a1/",
   "created_utc":1700000000,"selftext":"We have no clients this month and the shop is quiet. Nobody comes in anymore."}},
 {"data":{"id":"b2","title":"Print shop needs help","author":"printer","permalink":"/r/smallbusiness/comments/b2/",
   "created_utc":1700000100,"selftext":"No leads at all lately, any tips? Reach me at owner@printshop.example please."}}
]}}`)
	}))
	defer ts.Close()

	cfg := testConfig(t)
	cfg.Sources.Reddit.BaseURL = ts.URL
	cfg.Storage = config.StorageConfig{Driver: "json", DSN: filepath.Join(t.TempDir(), "leads.ndjson")}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	req := pipeline.Request{Action: pipeline.ActionScrape, Params: pipeline.Params{
		Sources:        []string{"reddit", "apollo"},
		ProblemSignals: []string{"no_leads"},
	}}
	resp, err := a.pipeline.Run(ctx, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// two deduplicated posts plus the Apollo placeholder
	if len(resp.Leads) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(resp.Leads))
	}
	if resp.Leads[0].ID != "reddit-b2" {
		t.Errorf("expected the lead with an email first, got %s", resp.Leads[0].ID)
	}
	if int(hits.Load()) != 1+len(cfg.Sources.Reddit.Subreddits) {
		t.Errorf("expected one global and %d community queries, got %d", len(cfg.Sources.Reddit.Subreddits), hits.Load())
	}

	// saving twice must not duplicate rows
	for i := 0; i < 2; i++ {
		if _, err := storage.SaveAll(ctx, a.store, resp.Leads); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	n, err := a.store.Count(ctx, storage.Filter{Source: "Reddit"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 stored reddit leads, got %d", n)
	}
}

func TestIntegration_ProxyRotation(t *testing.T) {
	var proxyHits atomic.Int32
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		w.Header().Set("X-Proxied", "true")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "proxied content")
	}))
	defer proxySrv.Close()

	cfg := testConfig(t)
	cfg.HTTP.Proxies = []string{proxySrv.URL}
	cfg.HTTP.UserAgents = []string{"IntegrationTest-UA"}

	fetcher, err := newFetcher(cfg.HTTP, nil, quietLogger())
	if err != nil {
		t.Fatalf("newFetcher: %v", err)
	}

	res := fetcher.Get(context.Background(), "http://example.com/testproxy", nil)
	if err := res.Err(); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if proxyHits.Load() == 0 {
		t.Error("expected proxy server to be hit")
	}
	if res.Headers.Get("X-Proxied") != "true" {
		t.Error("expected X-Proxied header from proxy server")
	}
}

func TestIntegration_CookieJarPersistence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "123456", Path: "/"})
		fmt.Fprint(w, `<html><body>ok</body></html>`)
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session_id"); err != nil || c.Value != "123456" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `<html><body>Protected content</body></html>`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, err := newFetcher(testConfig(t).HTTP, nil, quietLogger())
	if err != nil {
		t.Fatalf("newFetcher: %v", err)
	}

	ctx := context.Background()
	if err := fetcher.Get(ctx, ts.URL+"/login", nil).Err(); err != nil {
		t.Fatalf("login: %v", err)
	}
	res := fetcher.Get(ctx, ts.URL+"/protected", nil)
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for /protected due to cookie jar, got %d", res.StatusCode)
	}
}
