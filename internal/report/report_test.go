package report

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

func str(s string) *string { return &s }

func sampleRun() ([]lead.Formatted, lead.Meta) {
	leads := []lead.Formatted{
		{CompanyName: "Zed Foods", Source: "GoZambiaJobs", ConfidenceScore: 75, Urgency: lead.UrgencyHigh, Email: str("hr@zedfoods.example"), Phone: str("+260 97 1234567")},
		{CompanyName: "<script>alert(1)</script>", Source: "Reddit", ConfidenceScore: 70, Urgency: lead.UrgencyHigh, Phone: str("0977 123 456"), SourceURL: str("https://reddit.com/r/x")},
		{CompanyName: "acme.example", Source: "Google", ConfidenceScore: 60, Urgency: lead.UrgencyMedium, CompanyWebsite: str("https://acme.example")},
		{CompanyName: "anonymous", Source: "Reddit", ConfidenceScore: 45, Urgency: lead.UrgencyMedium},
	}
	meta := lead.ComputeMeta(leads, []string{"Reddit", "GoZambiaJobs", "Google"}, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return leads, meta
}

func TestGenerateSummary(t *testing.T) {
	s := GenerateSummary(sampleRun())

	if s.Total != 4 || s.WithEmail != 1 || s.WithPhone != 2 || s.WithWebsite != 1 {
		t.Errorf("coverage = %+v", s)
	}
	if s.BySource["Reddit"] != 2 || s.BySource["Google"] != 1 {
		t.Errorf("by source = %v", s.BySource)
	}
	if s.Buckets[lead.BucketWarm] != 3 || s.Buckets[lead.BucketMild] != 1 || s.Buckets[lead.BucketHot] != 0 {
		t.Errorf("buckets = %v", s.Buckets)
	}
	if s.ByUrgency[lead.UrgencyHigh] != 2 {
		t.Errorf("urgency = %v", s.ByUrgency)
	}
	if s.AvgScore != 62.5 {
		t.Errorf("avg = %v", s.AvgScore)
	}
	if len(s.Top) != 4 || s.Top[0].Contact != "hr@zedfoods.example" || s.Top[1].Contact != "0977 123 456" || s.Top[3].Contact != "" {
		t.Errorf("top = %+v", s.Top)
	}
	want := []Count{{"Reddit", 2}, {"GoZambiaJobs", 1}, {"Google", 1}}
	if got := s.SourceCounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("source order = %v, want %v", got, want)
	}
	if s.Coverage(s.WithEmail) != 25 {
		t.Errorf("coverage = %v", s.Coverage(s.WithEmail))
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	s := GenerateSummary(nil, lead.Meta{})
	if s.Total != 0 || s.AvgScore != 0 || s.Coverage(0) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Sources:       none") {
		t.Errorf("text = %s", buf.String())
	}
}

func TestWriters(t *testing.T) {
	s := GenerateSummary(sampleRun())

	var js bytes.Buffer
	if err := Write(&js, "json", s); err != nil {
		t.Fatal(err)
	}
	var decoded Summary
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil || decoded.Total != 4 {
		t.Errorf("json round trip: %v %+v", err, decoded)
	}

	var txt bytes.Buffer
	if err := Write(&txt, "", s); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Leads:         4 (avg score 62.5)", "Sources:       Reddit, GoZambiaJobs, Google", "With email:    1 (25%)", "warm: 3", "[75] Zed Foods (GoZambiaJobs) hr@zedfoods.example"} {
		if !strings.Contains(txt.String(), want) {
			t.Errorf("text report missing %q:\n%s", want, txt.String())
		}
	}

	var html bytes.Buffer
	if err := Write(&html, "html", s); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html.String(), "<script>alert(1)</script>") {
		t.Error("html report must escape lead fields")
	}
	if !strings.Contains(html.String(), `<a href="https://reddit.com/r/x">`) {
		t.Error("html report should link the source url")
	}

	if err := Write(&html, "pdf", s); err == nil {
		t.Error("expected error for unknown format")
	}
}
