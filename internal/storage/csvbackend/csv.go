package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

// csvBackend keeps every row in memory, indexed by content hash. New rows
// are appended to the file; an update rewrites it.
type csvBackend struct {
	mu    sync.Mutex
	file  *os.File
	rows  []*lead.Formatted
	index map[string]int
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"company_name",
	"industry",
	"location",
	"detected_problem",
	"pain_summary",
	"confidence_score",
	"urgency",
	"outreach_suggestion",
	"matched_keywords",
	"source",
	"source_url",
	"found_at",
	"email",
	"phone",
	"company_website",
}

const keywordSep = "|"

// New opens filePath, creating it with a header row when empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open: %w", err)
	}

	b := &csvBackend{file: f, index: make(map[string]int)}
	if err := b.load(); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

func (b *csvBackend) load() error {
	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return b.rewrite()
		}
		return fmt.Errorf("csv: read header: %w", err)
	}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("csv: read: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}
		b.put(fromRecord(record))
	}
	_, err := b.file.Seek(0, io.SeekEnd)
	return err
}

// put upserts l in memory and reports whether it replaced a row.
func (b *csvBackend) put(l *lead.Formatted) bool {
	h := l.ContentHash()
	if i, ok := b.index[h]; ok {
		b.rows[i] = l
		return true
	}
	b.index[h] = len(b.rows)
	b.rows = append(b.rows, l)
	return false
}

func (b *csvBackend) Save(ctx context.Context, l *lead.Formatted) error {
	cp := *l
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.put(&cp) {
		return b.rewrite()
	}

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csv: seek: %w", err)
	}
	w := csv.NewWriter(b.file)
	if err := w.Write(toRecord(&cp)); err != nil {
		return fmt.Errorf("csv: write: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}

// rewrite replaces the file contents with the header and all rows.
func (b *csvBackend) rewrite() error {
	if err := b.file.Truncate(0); err != nil {
		return fmt.Errorf("csv: truncate: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("csv: seek: %w", err)
	}
	w := csv.NewWriter(b.file)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, l := range b.rows {
		if err := w.Write(toRecord(l)); err != nil {
			return fmt.Errorf("csv: write: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*lead.Formatted, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := filter.Apply(b.rows)
	for i, l := range out {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

func (b *csvBackend) Count(ctx context.Context, filter storage.Filter) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	filter.Limit, filter.Offset = 0, 0
	return len(filter.Apply(b.rows)), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

func toRecord(l *lead.Formatted) []string {
	return []string{
		l.ID,
		l.CompanyName,
		l.Industry,
		l.Location,
		l.DetectedProblem,
		l.PainSummary,
		strconv.Itoa(l.ConfidenceScore),
		l.Urgency,
		l.OutreachSuggestion,
		strings.Join(l.MatchedKeywords, keywordSep),
		l.Source,
		deref(l.SourceURL),
		l.FoundAt.UTC().Format(time.RFC3339Nano),
		deref(l.Email),
		deref(l.Phone),
		deref(l.CompanyWebsite),
	}
}

func fromRecord(r []string) *lead.Formatted {
	score, _ := strconv.Atoi(r[6])
	found, _ := time.Parse(time.RFC3339Nano, r[12])
	kw := []string{}
	if r[9] != "" {
		kw = strings.Split(r[9], keywordSep)
	}
	return &lead.Formatted{
		ID:                 r[0],
		CompanyName:        r[1],
		Industry:           r[2],
		Location:           r[3],
		DetectedProblem:    r[4],
		PainSummary:        r[5],
		ConfidenceScore:    score,
		Urgency:            r[7],
		OutreachSuggestion: r[8],
		MatchedKeywords:    kw,
		Source:             r[10],
		SourceURL:          nullable(r[11]),
		FoundAt:            found,
		Email:              nullable(r[13]),
		Phone:              nullable(r[14]),
		CompanyWebsite:     nullable(r[15]),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
