// Package cache stores fetched page bodies so repeated searches inside the
// TTL do not hit the same source twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte cache keyed by Key.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
}

// Key derives a cache key from a request method and URL.
func Key(method, url string) string {
	sum := sha256.Sum256([]byte(method + " " + url))
	return "leadscout:page:v1:" + hex.EncodeToString(sum[:])
}
