// Package extract pulls emails, phone numbers and company websites out of
// free text.
package extract

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}`)
	websitePattern = regexp.MustCompile(`(?i)https?://([a-z0-9.-]+\.[a-z]{2,})[^\s)"]*`)
)

// minPhoneDigits rejects short numeric codes that happen to look like phone numbers.
const minPhoneDigits = 7

// DefaultExcludedHosts lists social and media hosts that never count as a
// company website. Subdomains of an entry are excluded too.
var DefaultExcludedHosts = []string{
	"reddit.com",
	"redd.it",
	"imgur.com",
	"youtube.com",
	"youtu.be",
	"twitter.com",
	"x.com",
	"facebook.com",
	"fb.com",
	"instagram.com",
	"tiktok.com",
}

// Contact holds the signals mined from one piece of text. Empty fields mean
// nothing was found.
type Contact struct {
	Email   string
	Phone   string
	Website string
}

// Email returns the first email address in text, or "" if there is none.
func Email(text string) string {
	return emailPattern.FindString(text)
}

// Phone returns the first phone-shaped substring in text, trimmed of
// surrounding whitespace. Only the leftmost candidate is considered; it is
// rejected when it carries fewer than seven digits.
func Phone(text string) string {
	m := phonePattern.FindString(text)
	if m == "" {
		return ""
	}
	if countDigits(m) < minPhoneDigits {
		return ""
	}
	return strings.TrimSpace(m)
}

// Website returns the first http(s) URL in text whose host is not in
// DefaultExcludedHosts.
func Website(text string) string {
	return defaultMatcher.Find(text)
}

// Scan runs all three extractors over text.
func Scan(text string) Contact {
	return Contact{
		Email:   Email(text),
		Phone:   Phone(text),
		Website: Website(text),
	}
}

var defaultMatcher = NewWebsiteMatcher(DefaultExcludedHosts)

// WebsiteMatcher finds company URLs while skipping a denylist of hosts.
// It is immutable after construction and safe for concurrent use.
type WebsiteMatcher struct {
	excluded []string
}

// NewWebsiteMatcher builds a matcher. Entries are matched case-insensitively
// against the URL host and its parent domains.
func NewWebsiteMatcher(excluded []string) *WebsiteMatcher {
	hosts := make([]string, 0, len(excluded))
	for _, h := range excluded {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(h, "www.")
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &WebsiteMatcher{excluded: hosts}
}

// Find returns the first qualifying URL in text, or "".
func (m *WebsiteMatcher) Find(text string) string {
	for _, loc := range websitePattern.FindAllStringSubmatchIndex(text, -1) {
		host := strings.ToLower(text[loc[2]:loc[3]])
		if m.Excluded(host) {
			continue
		}
		return text[loc[0]:loc[1]]
	}
	return ""
}

// Excluded reports whether host (or one of its parent domains) is denylisted.
func (m *WebsiteMatcher) Excluded(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, d := range m.excluded {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
