package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

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
	matched_keywords TEXT[] NOT NULL,
	source TEXT NOT NULL,
	source_url TEXT,
	found_at TIMESTAMPTZ NOT NULL,
	email TEXT,
	phone TEXT,
	company_website TEXT,
	stored_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS leads_found_at ON leads(found_at);
CREATE INDEX IF NOT EXISTS leads_source ON leads(source);
`

const columns = `id, company_name, industry, location, detected_problem, pain_summary, confidence_score,
	urgency, outreach_suggestion, matched_keywords, source, source_url, found_at, email, phone, company_website`

// New connects to dsn and applies the schema.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, l *lead.Formatted) error {
	kw := l.MatchedKeywords
	if kw == nil {
		kw = []string{}
	}

	query := `
	INSERT INTO leads (content_hash, ` + columns + `, stored_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
	ON CONFLICT (content_hash) DO UPDATE SET
		id = EXCLUDED.id,
		industry = EXCLUDED.industry,
		location = EXCLUDED.location,
		confidence_score = EXCLUDED.confidence_score,
		urgency = EXCLUDED.urgency,
		outreach_suggestion = EXCLUDED.outreach_suggestion,
		matched_keywords = EXCLUDED.matched_keywords,
		found_at = EXCLUDED.found_at,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		company_website = EXCLUDED.company_website,
		stored_at = now()
	`

	_, err := b.pool.Exec(ctx, query,
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
		kw,
		l.Source,
		l.SourceURL,
		l.FoundAt,
		l.Email,
		l.Phone,
		l.CompanyWebsite,
	)
	if err != nil {
		return fmt.Errorf("postgres: save: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*lead.Formatted, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + columns + ` FROM leads` + where

	dir := "DESC"
	if !storage.Descending(filter.SortOrder) {
		dir = "ASC"
	}
	query += ` ORDER BY ` + storage.SortColumn(filter.SortBy) + ` ` + dir + `, content_hash ASC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*lead.Formatted, error) {
		var l lead.Formatted
		var found time.Time
		err := row.Scan(
			&l.ID, &l.CompanyName, &l.Industry, &l.Location, &l.DetectedProblem, &l.PainSummary,
			&l.ConfidenceScore, &l.Urgency, &l.OutreachSuggestion, &l.MatchedKeywords, &l.Source, &l.SourceURL,
			&found, &l.Email, &l.Phone, &l.CompanyWebsite,
		)
		l.FoundAt = found.UTC()
		return &l, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}
	return results, nil
}

func (b *postgresBackend) Count(ctx context.Context, filter storage.Filter) (int, error) {
	where, args := whereClause(filter)
	var n int
	if err := b.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

func whereClause(f storage.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Source != "" {
		add(`LOWER(source) = LOWER($%d)`, f.Source)
	}
	if f.MinScore > 0 {
		add(`confidence_score >= $%d`, f.MinScore)
	}
	if f.MaxScore > 0 {
		add(`confidence_score <= $%d`, f.MaxScore)
	}
	if f.Since != nil {
		add(`found_at >= $%d`, *f.Since)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(company_name ILIKE $%d OR pain_summary ILIKE $%d OR email ILIKE $%d)`, n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}
