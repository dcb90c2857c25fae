// Package cache provides a content-addressed byte cache for expensive
// intermediate results: parsed tables of large annotation files and exported
// layout documents. Backends: file (CLI default), redis (serve deployments),
// null (caching disabled).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is the byte-level cache contract all backends implement.
type Cache interface {
	// Get retrieves a value. The second return reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value. A zero ttl means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Hash computes the SHA-256 content hash as a 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TableKey builds the cache key for a parsed table: the format discriminates
// the parser, the content hash the input.
func TableKey(format, contentHash string) string {
	return fmt.Sprintf("table:%s:%s", format, contentHash)
}

// DocumentKey builds the cache key for an exported layout document derived
// from the given inputs. Options that change the layout must be part of opts.
func DocumentKey(contentHash string, opts any) string {
	data, _ := json.Marshal(opts)
	return fmt.Sprintf("doc:%s:%s", contentHash, Hash(data))
}
