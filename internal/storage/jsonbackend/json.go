package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

// jsonBackend stores one lead per line. Rows are indexed in memory by
// content hash; an update rewrites the file.
type jsonBackend struct {
	mu    sync.Mutex
	file  *os.File
	rows  []*lead.Formatted
	index map[string]int
}

// New opens (or creates) an NDJSON file at filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("ndjson: open: %w", err)
	}

	b := &jsonBackend{file: f, index: make(map[string]int)}
	if err := b.load(); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

func (b *jsonBackend) load() error {
	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for line := 1; scanner.Scan(); line++ {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var l lead.Formatted
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("ndjson: line %d: %w", line, err)
		}
		b.put(&l)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ndjson: read: %w", err)
	}
	_, err := b.file.Seek(0, io.SeekEnd)
	return err
}

func (b *jsonBackend) put(l *lead.Formatted) bool {
	h := l.ContentHash()
	if i, ok := b.index[h]; ok {
		b.rows[i] = l
		return true
	}
	b.index[h] = len(b.rows)
	b.rows = append(b.rows, l)
	return false
}

func (b *jsonBackend) Save(ctx context.Context, l *lead.Formatted) error {
	cp := *l
	data, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("ndjson: encode: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.put(&cp) {
		return b.rewrite()
	}
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("ndjson: seek: %w", err)
	}
	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("ndjson: write: %w", err)
	}
	return nil
}

func (b *jsonBackend) rewrite() error {
	if err := b.file.Truncate(0); err != nil {
		return fmt.Errorf("ndjson: truncate: %w", err)
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("ndjson: seek: %w", err)
	}
	w := bufio.NewWriter(b.file)
	enc := json.NewEncoder(w)
	for _, l := range b.rows {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("ndjson: encode: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("ndjson: flush: %w", err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*lead.Formatted, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := filter.Apply(b.rows)
	for i, l := range out {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}

func (b *jsonBackend) Count(ctx context.Context, filter storage.Filter) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	filter.Limit, filter.Offset = 0, 0
	return len(filter.Apply(b.rows)), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
