// Package analyzer finds problem-signal phrases inside lead text.
package analyzer

import (
	"strings"
	"unicode"
)

// TermMatch records where one phrase occurs in a piece of text.
type TermMatch struct {
	Term      string   `json:"term"`
	Count     int      `json:"count"`
	Sentences []string `json:"sentences"`
}

// Matcher looks for a fixed set of phrases, case-insensitively. It is
// immutable and safe for concurrent use.
type Matcher struct {
	terms []string
	lower []string
}

// NewMatcher builds a matcher over terms. Blank and duplicate terms are dropped.
func NewMatcher(terms []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		lt := strings.ToLower(t)
		if lt == "" {
			continue
		}
		if _, ok := seen[lt]; ok {
			continue
		}
		seen[lt] = struct{}{}
		m.terms = append(m.terms, t)
		m.lower = append(m.lower, lt)
	}
	return m
}

// Match returns the phrases that occur in text, in matcher order.
func (m *Matcher) Match(text string) []string {
	if m == nil || len(m.terms) == 0 || text == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	var out []string
	for i, lt := range m.lower {
		if strings.Contains(lowerText, lt) {
			out = append(out, m.terms[i])
		}
	}
	return out
}

// Matches returns per-phrase occurrence counts along with the sentences that
// contain each phrase.
func (m *Matcher) Matches(text string) []TermMatch {
	if m == nil || len(m.terms) == 0 || text == "" {
		return nil
	}

	lowerText := strings.ToLower(text)
	sentences := splitSentences(text)

	results := make([]TermMatch, 0, len(m.terms))
	for i, lt := range m.lower {
		count := strings.Count(lowerText, lt)
		if count == 0 {
			continue
		}
		var matched []string
		for _, s := range sentences {
			if strings.Contains(s.lower, lt) {
				matched = append(matched, s.original)
			}
		}
		results = append(results, TermMatch{
			Term:      m.terms[i],
			Count:     count,
			Sentences: matched,
		})
	}
	return results
}

type sentence struct {
	original string
	lower    string
}

// splitSentences breaks text on '.', '!' and '?', keeping the delimiter.
func splitSentences(text string) []sentence {
	estimated := len(text) / 50
	if estimated < 1 {
		estimated = 1
	}
	out := make([]sentence, 0, estimated)

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		out = append(out, sentence{original: s, lower: strings.ToLower(s)})
	}

	start := 0
	for i, r := range text {
		if i < start {
			continue
		}
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i + 1
		for end < len(text) && unicode.IsSpace(rune(text[end])) {
			end++
		}
		add(text[start:end])
		start = end
	}
	if start < len(text) {
		add(text[start:])
	}
	return out
}
