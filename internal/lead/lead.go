// Package lead defines the intermediate and public lead records and the pure
// scoring rules that derive one from the other.
package lead

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode/utf8"
)

// MaxBodyLen caps the text carried on a Raw lead.
const MaxBodyLen = 2000

// Raw is one discovered entity as produced by a source adapter. Adapters
// build it once; nothing downstream modifies it. Empty contact fields mean
// "not found".
type Raw struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Author         string    `json:"author"`
	Source         string    `json:"source"`
	SourceURL      string    `json:"source_url,omitempty"`
	FoundAt        time.Time `json:"found_at"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	CompanyWebsite string    `json:"company_website,omitempty"`
}

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// Formatted is the public lead record returned to callers.
type Formatted struct {
	ID                 string    `json:"id"`
	CompanyName        string    `json:"company_name"`
	Industry           string    `json:"industry"`
	Location           string    `json:"location"`
	DetectedProblem    string    `json:"detected_problem"`
	PainSummary        string    `json:"pain_summary"`
	ConfidenceScore    int       `json:"confidence_score"`
	Urgency            string    `json:"urgency"`
	OutreachSuggestion string    `json:"outreach_suggestion"`
	MatchedKeywords    []string  `json:"matched_keywords"`
	Source             string    `json:"source"`
	SourceURL          *string   `json:"source_url"`
	FoundAt            time.Time `json:"found_at"`
	Email              *string   `json:"email"`
	Phone              *string   `json:"phone"`
	CompanyWebsite     *string   `json:"company_website"`
}

// HasEmail reports whether the lead carries an email address.
func (f Formatted) HasEmail() bool { return f.Email != nil }

// HasPhone reports whether the lead carries a phone number.
func (f Formatted) HasPhone() bool { return f.Phone != nil }

// HasWebsite reports whether the lead carries a company website.
func (f Formatted) HasWebsite() bool { return f.CompanyWebsite != nil }

// ContentHash identifies a lead across runs. Persistent stores upsert on it.
func (f Formatted) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(f.Source))
	h.Write([]byte{0})
	h.Write([]byte(deref(f.SourceURL)))
	h.Write([]byte{0})
	h.Write([]byte(f.CompanyName))
	h.Write([]byte{0})
	h.Write([]byte(f.PainSummary))
	return hex.EncodeToString(h.Sum(nil))
}

// Meta summarises one run.
type Meta struct {
	Total     int       `json:"total"`
	Sources   []string  `json:"sources"`
	WithEmail int       `json:"withEmail"`
	WithPhone int       `json:"withPhone"`
	ScrapedAt time.Time `json:"scrapedAt"`
}

// ComputeMeta counts contact coverage over leads. sources is copied as given.
func ComputeMeta(leads []Formatted, sources []string, now time.Time) Meta {
	m := Meta{
		Total:     len(leads),
		Sources:   append([]string{}, sources...),
		ScrapedAt: now.UTC(),
	}
	for _, l := range leads {
		if l.HasEmail() {
			m.WithEmail++
		}
		if l.HasPhone() {
			m.WithPhone++
		}
	}
	return m
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
