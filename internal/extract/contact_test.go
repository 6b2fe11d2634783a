package extract

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "reach me at owner@acme-foods.co.zm today", "owner@acme-foods.co.zm"},
		{"first wins", "a@one.com or b@two.com", "a@one.com"},
		{"plus tag", "mail jo.smith+leads@example.org.", "jo.smith+leads@example.org"},
		{"no at sign", "call us on the number below", ""},
		{"tld too short", "user@host.c", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Email(tt.text); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"international", "WhatsApp +260 97 1234567 anytime", "+260 97 1234567"},
		{"us style", "office (555) 123-4567", "(555) 123-4567"},
		{"dotted", "tel 021.555.0199", "021.555.0199"},
		{"short code", "use code 12 34 to enter", ""},
		{"too few digits", "room 1234", ""},
		{"none", "no numbers here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Phone(tt.text); got != tt.want {
				t.Errorf("Phone(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestPhone_DigitFloor(t *testing.T) {
	for _, text := range []string{"12-345", "1 2", "99", "(12) 345"} {
		if got := Phone(text); got != "" {
			t.Errorf("Phone(%q) = %q, want empty", text, got)
		}
	}
}

func TestWebsite(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"company site", "see https://acme.co.zm/about for more", "https://acme.co.zm/about"},
		{"skips social first", "https://www.reddit.com/r/x and http://shop.example.com", "http://shop.example.com"},
		{"only excluded", "pics at https://i.imgur.com/abc.png", ""},
		{"youtube short", "watch https://youtu.be/xyz", ""},
		{"x.com", "follow https://x.com/acme", ""},
		{"stops at paren", "(https://acme.io)", "https://acme.io"},
		{"no url", "nothing to see", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Website(tt.text); got != tt.want {
				t.Errorf("Website(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWebsite_NeverReturnsExcludedHost(t *testing.T) {
	for _, host := range DefaultExcludedHosts {
		text := "only link: https://" + host + "/page and https://www." + host + "/other"
		if got := Website(text); got != "" {
			t.Errorf("Website returned excluded url %q for host %s", got, host)
		}
	}
}

func TestWebsiteMatcher_Custom(t *testing.T) {
	m := NewWebsiteMatcher([]string{"Example.com"})
	if got := m.Find("https://blog.example.com/post https://acme.org"); got != "https://acme.org" {
		t.Errorf("got %q", got)
	}
	if !m.Excluded("WWW.EXAMPLE.COM") {
		t.Error("expected www.example.com to be excluded")
	}
	if m.Excluded("notexample.com") {
		t.Error("suffix match must respect label boundaries")
	}
}

func TestScan(t *testing.T) {
	c := Scan("Bakery owner, email bake@crumbs.zm, call 0977 123 456, site https://crumbs.zm")
	if c.Email != "bake@crumbs.zm" {
		t.Errorf("email = %q", c.Email)
	}
	if c.Phone == "" {
		t.Error("expected a phone")
	}
	if c.Website != "https://crumbs.zm" {
		t.Errorf("website = %q", c.Website)
	}
}
