package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"prayogai-rag/internal/vectorindex"
)

// RetrievalCache remembers search hits for a (bot, query) pair so repeated
// widget questions skip the embedding call. Answers are never cached.
type RetrievalCache interface {
	Get(ctx context.Context, botID, query string) ([]vectorindex.Hit, bool, error)
	Set(ctx context.Context, botID, query string, hits []vectorindex.Hit) error
	InvalidateBot(ctx context.Context, botID string) error
}

// queryKey normalises case and whitespace before hashing.
func queryKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

type NoopCache struct{}

func (NoopCache) Get(context.Context, string, string) ([]vectorindex.Hit, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, string, []vectorindex.Hit) error { return nil }

func (NoopCache) InvalidateBot(context.Context, string) error { return nil }
