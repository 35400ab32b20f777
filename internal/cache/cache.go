package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PromptKey generates a cache key from an LLM prompt. The sampling
// temperature is intentionally not part of the key: a prompt seen once
// is answered from cache regardless of the temperature requested on
// later calls. Accepted imprecision, asserted by tests.
func PromptKey(prompt string) string {
	hash := sha256.Sum256([]byte(prompt))
	return "knowchain:v1:" + hex.EncodeToString(hash[:])
}
