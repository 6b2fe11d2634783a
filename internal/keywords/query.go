// Package keywords turns problem-signal selections into a boolean search query.
package keywords

import (
	"strings"
)

// Signal identifiers accepted from callers.
const (
	NoLeads              = "no_leads"
	LowConversions       = "low_conversions"
	NoMarketing          = "no_marketing"
	LookingForClients    = "looking_for_clients"
	BadAds               = "bad_ads"
	HiringMarketing      = "hiring_marketing"
	WeakBranding         = "weak_branding"
	CompetitorComplaints = "competitor_complaints"
)

// Phrases maps each known signal to the phrases it searches for. Phrases are
// quoted and OR-joined when the query is built.
var Phrases = map[string][]string{
	NoLeads:              {"no clients", "need more clients", "can't get customers", "no leads"},
	LowConversions:       {"low conversions", "not converting", "no sales", "conversion rate"},
	NoMarketing:          {"no marketing", "how to market", "need marketing help", "marketing advice"},
	LookingForClients:    {"looking for clients", "find customers", "get more customers"},
	BadAds:               {"ads not working", "ad creative", "bad ads", "ads not converting"},
	HiringMarketing:      {"hiring marketer", "need a designer", "looking for a designer", "graphic designer needed"},
	WeakBranding:         {"need a logo", "rebrand", "no website", "branding help"},
	CompetitorComplaints: {"losing to competitors", "competitors are winning", "competition is killing"},
}

// Fragment returns the OR-joined phrase group for a signal. Signals missing
// from Phrases are returned verbatim so callers can pass free-form terms.
func Fragment(signal string) string {
	phrases, ok := Phrases[signal]
	if !ok {
		return signal
	}
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = `"` + p + `"`
	}
	return strings.Join(quoted, " OR ")
}

// Build assembles the final query: the selected signals' fragments joined
// with OR, followed by the custom signals and the industry hint. Empty parts
// are dropped. With no signals the no_leads fragment is used.
func Build(signals []string, custom, industry string) string {
	var fragments []string
	for _, s := range signals {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		fragments = append(fragments, Fragment(s))
	}
	if len(fragments) == 0 {
		fragments = []string{Fragment(NoLeads)}
	}

	parts := []string{
		strings.Join(fragments, " OR "),
		strings.TrimSpace(custom),
		strings.TrimSpace(industry),
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// Selected returns the phrases behind the given signals, skipping unknown
// ones. With no signals it returns the no_leads phrases.
func Selected(signals []string) []string {
	if len(signals) == 0 {
		signals = []string{NoLeads}
	}
	var out []string
	for _, s := range signals {
		out = append(out, Phrases[s]...)
	}
	return out
}
