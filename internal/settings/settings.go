// Package settings is the key-value store operators use to override
// configuration at runtime, such as webhook URLs and the Apollo API key.
package settings

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Well-known keys.
const (
	KeyApolloAPIKey = "apollo_api_key"
	webhookPrefix   = "webhook_"
)

// WebhookKey is the settings key holding the webhook URL for action.
func WebhookKey(action string) string {
	return webhookPrefix + strings.ToLower(strings.TrimSpace(action))
}

// IsWebhookKey reports whether key holds a webhook URL.
func IsWebhookKey(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), webhookPrefix)
}

// Store reads and writes string settings. Get reports ok=false for a
// missing key; only backend failures are errors.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
}

// Lookup returns the value for key, or "" when missing or on error.
func Lookup(ctx context.Context, s Store, key string) string {
	if s == nil {
		return ""
	}
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// Keys returns the sorted keys of m.
func Keys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MemoryStore keeps settings for the life of the process.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(initial map[string]string) *MemoryStore {
	m := make(map[string]string, len(initial))
	for k, v := range initial {
		m[k] = v
	}
	return &MemoryStore{m: m}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemoryStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out, nil
}
