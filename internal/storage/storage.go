// Package storage defines where formatted leads are kept between runs.
// Backends upsert on the lead's content hash, so re-running a search does
// not duplicate rows.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// Sort keys accepted by Filter.SortBy.
const (
	SortFoundAt = "found_at"
	SortScore   = "confidence_score"
	SortCompany = "company_name"
)

// Filter selects stored leads. Zero values mean "no constraint".
type Filter struct {
	Source string
	// MinScore and MaxScore bound confidence_score. MaxScore <= 0 is unbounded.
	MinScore int
	MaxScore int
	// Search matches company name, pain summary or email, case-insensitively.
	Search string
	Since  *time.Time
	// SortBy is one of the Sort* keys (default found_at). SortOrder is
	// "asc" or "desc" (default desc).
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Backend defines the interface for storing and querying leads.
type Backend interface {
	// Save inserts l or replaces the row with the same content hash.
	Save(ctx context.Context, l *lead.Formatted) error
	Query(ctx context.Context, filter Filter) ([]*lead.Formatted, error)
	// Count returns how many leads match filter, ignoring Limit and Offset.
	Count(ctx context.Context, filter Filter) (int, error)
	Close() error
}

// SaveAll saves leads in order and returns how many were written before
// the first failure.
func SaveAll(ctx context.Context, b Backend, leads []lead.Formatted) (int, error) {
	for i := range leads {
		if err := b.Save(ctx, &leads[i]); err != nil {
			return i, fmt.Errorf("storage: save %s: %w", leads[i].ID, err)
		}
	}
	return len(leads), nil
}

// SortColumn maps a SortBy value to a column name, defaulting to found_at.
// SQL backends interpolate the result, so it is always one of the Sort*
// constants.
func SortColumn(sortBy string) string {
	switch sortBy {
	case SortScore, SortCompany:
		return sortBy
	default:
		return SortFoundAt
	}
}

// Descending reports whether order asks for a descending sort.
func Descending(order string) bool {
	return !strings.EqualFold(strings.TrimSpace(order), "asc")
}

// Match applies filter to one lead. File backends use it directly; SQL
// backends translate the same rules into WHERE clauses.
func (f Filter) Match(l *lead.Formatted) bool {
	if f.Source != "" && !strings.EqualFold(l.Source, f.Source) {
		return false
	}
	if l.ConfidenceScore < f.MinScore {
		return false
	}
	if f.MaxScore > 0 && l.ConfidenceScore > f.MaxScore {
		return false
	}
	if f.Since != nil && l.FoundAt.Before(*f.Since) {
		return false
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		hay := strings.ToLower(l.CompanyName + "\x00" + l.PainSummary)
		if l.Email != nil {
			hay += "\x00" + strings.ToLower(*l.Email)
		}
		if !strings.Contains(hay, s) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and pages leads in memory.
func (f Filter) Apply(leads []*lead.Formatted) []*lead.Formatted {
	out := make([]*lead.Formatted, 0, len(leads))
	for _, l := range leads {
		if f.Match(l) {
			out = append(out, l)
		}
	}

	desc := Descending(f.SortOrder)
	col := SortColumn(f.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var less bool
		switch col {
		case SortScore:
			if a.ConfidenceScore == b.ConfidenceScore {
				return false
			}
			less = a.ConfidenceScore < b.ConfidenceScore
		case SortCompany:
			if a.CompanyName == b.CompanyName {
				return false
			}
			less = a.CompanyName < b.CompanyName
		default:
			if a.FoundAt.Equal(b.FoundAt) {
				return false
			}
			less = a.FoundAt.Before(b.FoundAt)
		}
		if desc {
			return !less
		}
		return less
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*lead.Formatted{}
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}
