package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// Cache defines the interface for caching generated recipe text.
type Cache interface {
	// Get retrieves a value from the cache by key.
	// The boolean is false if the key is not found or has expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value in the cache with the given key and TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes a value from the cache by key.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Key derives a cache key from the model id and the ingredient string.
// The ingredients are embedded verbatim in the prompt, so they are hashed verbatim.
func Key(modelID, ingredients string) string {
	hash := sha256.Sum256([]byte(modelID + "\x00" + ingredients))
	return fmt.Sprintf("%x", hash)
}
