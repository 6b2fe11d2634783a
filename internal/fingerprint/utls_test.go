package fingerprint

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseProfile(t *testing.T) {
	cases := map[string]Profile{"": ProfileGo, "Chrome": ProfileChrome, " firefox ": ProfileFirefox, "random": ProfileRandom}
	for in, want := range cases {
		got, err := ParseProfile(in)
		if err != nil || got != want {
			t.Errorf("ParseProfile(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseProfile("netscape"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestTransport_UTLSProfilesSetDialer(t *testing.T) {
	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileRandom} {
		rt, err := Transport(p, nil)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		tr, ok := rt.(*http.Transport)
		if !ok || tr.DialTLSContext == nil {
			t.Errorf("%s: expected uTLS dialer", p)
		}
	}
	if _, err := Transport("bogus", nil); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestTransport_GoProfile(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	rt, err := Transport(ProfileGo, nil)
	if err != nil {
		t.Fatal(err)
	}
	tr := rt.(*http.Transport)
	tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	resp, err := (&http.Client{Transport: tr}).Get(ts.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestTransport_Proxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://127.0.0.1:3128")
	rt, err := Transport(ProfileChrome, http.ProxyURL(proxyURL))
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	got, _ := rt.(*http.Transport).Proxy(req)
	if got == nil || got.String() != proxyURL.String() {
		t.Errorf("proxy = %v", got)
	}
}
