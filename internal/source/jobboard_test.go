package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const jobCards = `<html><body>
<div class="job">
  <h2><a href="/vacancy/graphic-designer-123">Graphic Designer</a></h2>
  <span class="job-company">Zed Foods Ltd</span>
  <p>Send CVs to hr@zedfoods.co.zm</p>
  <a href="/vacancy/graphic-designer-123">Read more</a>
</div>
<div class="job">
  <h2><a href="/vacancy/marketing-officer-456">Marketing Officer</a></h2>
  <div><span class="company-name">Copperbelt Motors</span></div>
</div>
<div class="job">
  <h2><a href="/vacancy/x">Apply</a></h2>
</div>
</body></html>`

func TestParseJobBoard_Cards(t *testing.T) {
	ps, err := parseJobBoard([]byte(jobCards))
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 {
		t.Fatalf("postings = %+v", ps)
	}
	if ps[0].company != "Zed Foods Ltd" || ps[0].email != "hr@zedfoods.co.zm" || ps[0].title != "Graphic Designer" {
		t.Errorf("first = %+v", ps[0])
	}
	if ps[1].company != "Copperbelt Motors" || ps[1].email != "" {
		t.Errorf("second = %+v", ps[1])
	}
}

func TestParseJobBoard_PositionalFallback(t *testing.T) {
	page := `<html><body>
<ul><li><a href="/vacancy/a">Brand Manager</a></li><li><a href="/vacancy/b">Content Designer</a></li></ul>
<table><tr><td><p><b><i><span class="company">First Co</span></i></b></p></td></tr></table>
</body></html>`
	ps, err := parseJobBoard([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 2 || ps[0].company != "First Co" || ps[1].company != "" {
		t.Errorf("postings = %+v", ps)
	}
}

func TestParseJobBoard_Cap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<div><a href="/vacancy/%d">Marketing role %d</a><span class="company">Co %d</span></div>`, i, i, i)
	}
	ps, _ := parseJobBoard([]byte(b.String()))
	if len(ps) != jobBoardMaxPostings {
		t.Errorf("got %d postings", len(ps))
	}
}

func TestJobBoard_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/Retail marketing design graphic" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, jobCards)
	}))
	defer ts.Close()

	a := NewJobBoard(newFetcher(t), Config{BaseURL: ts.URL}, nil)
	leads, err := a.Fetch(context.Background(), Query{Industry: "Retail"})
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 2 {
		t.Fatalf("leads = %+v", leads)
	}
	l := leads[0]
	if l.Author != "Zed Foods Ltd" || l.Source != "GoZambiaJobs" || l.SourceURL != ts.URL+"/vacancy/graphic-designer-123" {
		t.Errorf("lead = %+v", l)
	}
	if !strings.HasPrefix(l.Body, `Zed Foods Ltd is hiring: "Graphic Designer".`) || l.Email != "hr@zedfoods.co.zm" {
		t.Errorf("lead = %+v", l)
	}
	if !strings.HasPrefix(l.ID, "gzj-0-") || l.ID == leads[1].ID {
		t.Errorf("ids = %s, %s", l.ID, leads[1].ID)
	}
}

func TestJobBoard_UnknownCompany(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/vacancy/a">Social Media Lead</a>`)
	}))
	defer ts.Close()

	a := NewJobBoard(newFetcher(t), Config{BaseURL: ts.URL}, nil)
	leads, err := a.Fetch(context.Background(), Query{})
	if err != nil || len(leads) != 1 || leads[0].Author != "Unknown Company" {
		t.Errorf("leads=%+v err=%v", leads, err)
	}
}
