package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/use-agent/eduminer/grade"
)

// Entry is a cached search response, stored exactly as it was sent.
type Entry struct {
	Body         []byte    `json:"body"`
	SourceStatus string    `json:"source_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store holds search responses for a fixed TTL. Implementations are safe
// for concurrent use.
type Store interface {
	// Get returns the entry for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores e under key.
	Set(ctx context.Context, key string, e *Entry) error

	// Close releases background resources.
	Close() error
}

// Key derives the cache key for one search. Every input that changes the
// response is part of the key.
func Key(q string, g grade.Token, page int, allowAI bool) string {
	h := sha256.New()
	h.Write([]byte(q))
	h.Write([]byte("|"))
	h.Write([]byte(g))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(page)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatBool(allowAI)))
	return hex.EncodeToString(h.Sum(nil))
}
