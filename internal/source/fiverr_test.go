package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const fiverrCards = `<html><body>
<nav><a href="/categories?x=1">Categories</a><a href="/search?q=logo">Search</a></nav>
<div class="gig-card">
  <div class="seller"><a href="/alice_designs?source=gig_cards">alice_designs</a></div>
  <div class="body"><a href="/alice_designs/logo"><h3 class="title">I will design a <b>modern</b> logo</h3></a></div>
</div>
<div class="gig-card">
  <div class="seller"><a href="/bob99?source=gig_cards">bob99</a></div>
  <div class="body"><h3 class="title">I will create social media ads</h3></div>
</div>
<div class="gig-card">
  <div class="seller"><a href="/alice_designs?source=gig_cards">alice_designs</a></div>
  <div class="body"><h3 class="title">I will do a second gig</h3></div>
</div>
</body></html>`

func TestParseFiverr_Cards(t *testing.T) {
	gigs, err := parseFiverr([]byte(fiverrCards))
	if err != nil {
		t.Fatal(err)
	}
	want := []gig{
		{seller: "alice_designs", title: "I will design a modern logo"},
		{seller: "bob99", title: "I will create social media ads"},
	}
	if len(gigs) != len(want) {
		t.Fatalf("gigs = %+v", gigs)
	}
	for i := range want {
		if gigs[i] != want[i] {
			t.Errorf("gig %d = %+v, want %+v", i, gigs[i], want[i])
		}
	}
}

func TestParseFiverr_PositionalFallback(t *testing.T) {
	// headings and seller links live in separate lists, so no card pairs them
	page := `<html><body>
<section><h3>First gig</h3></section><section><h3>Second gig</h3></section>
<footer><ul><li><p><span><em><a href="/search?q=x">s</a></em></span></p></li></ul></footer>
<aside><ul><li><p><span><em><a href="/carol?src=1">carol</a><a href="/dave?src=1">dave</a><a href="/erin?src=1">erin</a></em></span></p></li></ul></aside>
</body></html>`
	gigs, err := parseFiverr([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if len(gigs) != 3 {
		t.Fatalf("gigs = %+v", gigs)
	}
	if gigs[0] != (gig{seller: "carol", title: "First gig"}) || gigs[2].title != "" {
		t.Errorf("gigs = %+v", gigs)
	}
}

func TestParseFiverr_CapsSellers(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<div><a href="/seller%d?x=1">s</a><h3>gig %d</h3></div>`, i, i)
	}
	gigs, _ := parseFiverr([]byte(b.String()))
	if len(gigs) != fiverrMaxSellers {
		t.Errorf("got %d sellers", len(gigs))
	}
}

func TestFiverr_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search/gigs" || q.Get("query") != "Restaurants no clients" || q.Get("search_in") != "everywhere" {
			t.Errorf("unexpected request %s", r.URL)
		}
		fmt.Fprint(w, fiverrCards)
	}))
	defer ts.Close()

	a := NewFiverr(newFetcher(t), Config{BaseURL: ts.URL}, nil)
	leads, err := a.Fetch(context.Background(), Query{Keywords: "no clients", Industry: "Restaurants"})
	if err != nil {
		t.Fatal(err)
	}
	if len(leads) != 2 {
		t.Fatalf("leads = %+v", leads)
	}
	l := leads[1]
	if l.ID != "fiverr-bob99-1" || l.Author != "bob99" || l.Source != "Fiverr" || l.SourceURL != ts.URL+"/bob99" {
		t.Errorf("lead = %+v", l)
	}
	if !strings.Contains(l.Body, `"Restaurants"`) {
		t.Errorf("body = %s", l.Body)
	}
}

func TestFiverr_DefaultIndustryAndBlock(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "graphic design" {
			t.Errorf("query = %q", got)
		}
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<div id="px-captcha"></div>`)
	}))
	defer ts.Close()

	a := NewFiverr(newFetcher(t), Config{BaseURL: ts.URL}, nil)
	if _, err := a.Fetch(context.Background(), Query{}); err == nil {
		t.Error("expected error for blocked page")
	}
}
