package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

// found_at is kept as unix milliseconds so range filters and ordering
// compare integers.
const schema = `
CREATE TABLE IF NOT EXISTS leads (
	content_hash TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	company_name TEXT NOT NULL,
	industry TEXT NOT NULL,
	location TEXT NOT NULL,
	detected_problem TEXT NOT NULL,
	pain_summary TEXT NOT NULL,
	confidence_score INTEGER NOT NULL,
	urgency TEXT NOT NULL,
	outreach_suggestion TEXT NOT NULL,
	matched_keywords TEXT NOT NULL,
	source TEXT NOT NULL,
	source_url TEXT,
	found_at INTEGER NOT NULL,
	email TEXT,
	phone TEXT,
	company_website TEXT,
	stored_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS leads_found_at ON leads(found_at);
CREATE INDEX IF NOT EXISTS leads_source ON leads(source);
`

const columns = `id, company_name, industry, location, detected_problem, pain_summary, confidence_score,
	urgency, outreach_suggestion, matched_keywords, source, source_url, found_at, email, phone, company_website`

// New opens (or creates) the database at dsn and applies the schema.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one writer avoids SQLITE_BUSY under concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, l *lead.Formatted) error {
	kw, err := json.Marshal(keywordsOrEmpty(l.MatchedKeywords))
	if err != nil {
		return fmt.Errorf("sqlite: encode keywords: %w", err)
	}

	query := `
	INSERT INTO leads (content_hash, ` + columns + `, stored_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(content_hash) DO UPDATE SET
		id = excluded.id,
		industry = excluded.industry,
		location = excluded.location,
		confidence_score = excluded.confidence_score,
		urgency = excluded.urgency,
		outreach_suggestion = excluded.outreach_suggestion,
		matched_keywords = excluded.matched_keywords,
		found_at = excluded.found_at,
		email = excluded.email,
		phone = excluded.phone,
		company_website = excluded.company_website,
		stored_at = excluded.stored_at
	`

	_, err = b.db.ExecContext(ctx, query,
		l.ContentHash(),
		l.ID,
		l.CompanyName,
		l.Industry,
		l.Location,
		l.DetectedProblem,
		l.PainSummary,
		l.ConfidenceScore,
		l.Urgency,
		l.OutreachSuggestion,
		string(kw),
		l.Source,
		nullable(l.SourceURL),
		l.FoundAt.UnixMilli(),
		nullable(l.Email),
		nullable(l.Phone),
		nullable(l.CompanyWebsite),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*lead.Formatted, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + columns + ` FROM leads` + where

	dir := "DESC"
	if !storage.Descending(filter.SortOrder) {
		dir = "ASC"
	}
	query += ` ORDER BY ` + storage.SortColumn(filter.SortBy) + ` ` + dir + `, rowid ASC`

	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	results := []*lead.Formatted{}
	for rows.Next() {
		var (
			l                                lead.Formatted
			kw                               string
			foundMs                          int64
			sourceURL, email, phone, website sql.NullString
		)
		err := rows.Scan(
			&l.ID, &l.CompanyName, &l.Industry, &l.Location, &l.DetectedProblem, &l.PainSummary,
			&l.ConfidenceScore, &l.Urgency, &l.OutreachSuggestion, &kw, &l.Source, &sourceURL,
			&foundMs, &email, &phone, &website,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(kw), &l.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("sqlite: decode keywords: %w", err)
		}
		l.FoundAt = time.UnixMilli(foundMs).UTC()
		l.SourceURL, l.Email, l.Phone, l.CompanyWebsite = ptr(sourceURL), ptr(email), ptr(phone), ptr(website)
		results = append(results, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return results, nil
}

func (b *sqliteBackend) Count(ctx context.Context, filter storage.Filter) (int, error) {
	where, args := whereClause(filter)
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

func whereClause(f storage.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Source != "" {
		conds = append(conds, `LOWER(source) = LOWER(?)`)
		args = append(args, f.Source)
	}
	if f.MinScore > 0 {
		conds = append(conds, `confidence_score >= ?`)
		args = append(args, f.MinScore)
	}
	if f.MaxScore > 0 {
		conds = append(conds, `confidence_score <= ?`)
		args = append(args, f.MaxScore)
	}
	if f.Since != nil {
		conds = append(conds, `found_at >= ?`)
		args = append(args, f.Since.UnixMilli())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, `(LOWER(company_name) LIKE ? OR LOWER(pain_summary) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)`)
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}

func nullable(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func keywordsOrEmpty(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}
