package lead

import (
	"fmt"
	"sort"
	"strings"
)

// DirectScrapeProblem is the detected_problem assigned to leads found by the
// direct-scrape pipeline.
const DirectScrapeProblem = "no_leads"

const painSummaryLen = 300

// Contact-richness weights used as the sort key.
const (
	emailWeight   = 30
	phoneWeight   = 25
	websiteWeight = 15
)

// Context carries the request-level values copied onto every formatted lead.
type Context struct {
	Industry string
	Location string
	// Matcher, when set, returns the signal phrases found in a lead's text.
	Matcher func(text string) []string
}

// Format derives the public record for r.
func Format(r Raw, c Context) Formatted {
	hasEmail, hasPhone, hasWebsite := r.Email != "", r.Phone != "", r.CompanyWebsite != ""

	f := Formatted{
		ID:              r.ID,
		CompanyName:     companyName(r),
		Industry:        c.Industry,
		Location:        c.Location,
		DetectedProblem: DirectScrapeProblem,
		PainSummary:     painSummary(r.Body),
		ConfidenceScore: ConfidenceScore(hasEmail, hasPhone, hasWebsite),
		Urgency:         UrgencyFor(hasEmail, hasPhone),
		Source:          r.Source,
		SourceURL:       nullable(r.SourceURL),
		FoundAt:         r.FoundAt,
		Email:           nullable(r.Email),
		Phone:           nullable(r.Phone),
		CompanyWebsite:  nullable(r.CompanyWebsite),
		MatchedKeywords: []string{},
	}
	if c.Matcher != nil {
		if m := c.Matcher(r.Title + " " + r.Body); len(m) > 0 {
			f.MatchedKeywords = m
		}
	}
	f.OutreachSuggestion = outreach(f)
	return f
}

// FormatAll formats raws in order.
func FormatAll(raws []Raw, c Context) []Formatted {
	out := make([]Formatted, 0, len(raws))
	for _, r := range raws {
		out = append(out, Format(r, c))
	}
	return out
}

// ConfidenceScore maps contact presence to a 0-100 score.
func ConfidenceScore(hasEmail, hasPhone, hasWebsite bool) int {
	switch {
	case hasEmail:
		return 75
	case hasPhone:
		return 70
	case hasWebsite:
		return 60
	default:
		return 45
	}
}

// UrgencyFor is high when the lead can be contacted directly.
func UrgencyFor(hasEmail, hasPhone bool) string {
	if hasEmail || hasPhone {
		return UrgencyHigh
	}
	return UrgencyMedium
}

// RichnessScore is the weighted sum of contact fields present on f. It can
// order leads differently from ConfidenceScore.
func RichnessScore(f Formatted) int {
	s := 0
	if f.HasEmail() {
		s += emailWeight
	}
	if f.HasPhone() {
		s += phoneWeight
	}
	if f.HasWebsite() {
		s += websiteWeight
	}
	return s
}

// SortByRichness orders leads by descending RichnessScore, keeping input
// order among equal scores.
func SortByRichness(leads []Formatted) {
	sort.SliceStable(leads, func(i, j int) bool {
		return RichnessScore(leads[i]) > RichnessScore(leads[j])
	})
}

// Score buckets used by reports and filters.
const (
	BucketHot  = "hot"
	BucketWarm = "warm"
	BucketMild = "mild"
	BucketCold = "cold"
)

// Bucket classifies a confidence score.
func Bucket(score int) string {
	switch {
	case score >= 80:
		return BucketHot
	case score >= 60:
		return BucketWarm
	case score >= 40:
		return BucketMild
	default:
		return BucketCold
	}
}

func companyName(r Raw) string {
	if name := strings.TrimSpace(r.Author); name != "" {
		return name
	}
	return "Unknown"
}

func painSummary(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	short := Truncate(body, painSummaryLen)
	if short != body {
		return strings.TrimSpace(short) + "..."
	}
	return body
}

func outreach(f Formatted) string {
	industry := strings.ToLower(strings.TrimSpace(f.Industry))
	if industry == "" {
		industry = "local"
	}
	where := "online"
	if f.Source != "" {
		where = "on " + f.Source
	}
	return fmt.Sprintf(
		"Hi %s, I came across your post %s and it sounds like getting new clients has been a struggle. "+
			"We make ad creatives and motion graphics that help %s businesses stand out and convert. "+
			"Would you be open to a quick chat?",
		f.CompanyName, where, industry,
	)
}
