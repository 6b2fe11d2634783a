package jsonbackend

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "leads.ndjson")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	site := "https://acme.example"

	leads := []lead.Formatted{
		{ID: "google-0", CompanyName: "acme.example", PainSummary: "Found via Google", Source: "Google", ConfidenceScore: 60, FoundAt: now.Add(-3 * time.Hour), CompanyWebsite: &site, MatchedKeywords: []string{}},
		{ID: "reddit-x", CompanyName: "kim", PainSummary: "no clients at all", Source: "Reddit", ConfidenceScore: 45, FoundAt: now.Add(-2 * time.Hour), MatchedKeywords: []string{"no clients"}},
		{ID: "reddit-y", CompanyName: "lee", PainSummary: "need a logo", Source: "Reddit", ConfidenceScore: 45, FoundAt: now.Add(-1 * time.Hour), MatchedKeywords: []string{}},
	}
	if n, err := storage.SaveAll(ctx, b, leads); err != nil || n != 3 {
		t.Fatalf("SaveAll = %d, %v", n, err)
	}
	// saving the same run again must not duplicate rows
	if _, err := storage.SaveAll(ctx, b, leads); err != nil {
		t.Fatal(err)
	}

	res, err := b.Query(ctx, storage.Filter{Source: "Reddit", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ID != "reddit-y" {
		t.Errorf("unexpected page: %+v", res)
	}
	if n, _ := b.Count(ctx, storage.Filter{Source: "Reddit", Limit: 1}); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	b.Close()

	b, err = New(filePath)
	if err != nil {
		t.Fatalf("Failed to reopen: %v", err)
	}
	defer b.Close()

	all, err := b.Query(ctx, storage.Filter{SortBy: storage.SortScore})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "google-0" || all[0].CompanyWebsite == nil {
		t.Fatalf("reloaded = %+v", all)
	}

	f, err := os.Open(filePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	for s := bufio.NewScanner(f); s.Scan(); {
		lines++
	}
	if lines != 3 {
		t.Errorf("file has %d lines, want 3", lines)
	}
}

func TestJSONBackend_CorruptLine(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "bad.ndjson")
	if err := os.WriteFile(filePath, []byte("{not json}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(filePath); err == nil {
		t.Error("expected error for corrupt file")
	}
}
