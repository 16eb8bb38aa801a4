// Package vectorindex stores passage embeddings per bot and answers
// nearest-neighbour queries strictly within one bot.
package vectorindex

import (
	"context"
	"math"
	"sort"
)

type Metadata struct {
	DocumentID string
	Ordinal    int
}

// Point is one passage vector written by UpsertBatch.
type Point struct {
	PassageID string
	Vector    []float32
	Metadata  Metadata
}

type Hit struct {
	PassageID  string
	DocumentID string
	Ordinal    int
	Score      float32
}

// Index is implemented by every vector engine. Upserts are idempotent on
// passage ID and Search never returns passages of another bot.
type Index interface {
	Upsert(ctx context.Context, botID, passageID string, vector []float32, meta Metadata) error
	UpsertBatch(ctx context.Context, botID string, points []Point) error
	Search(ctx context.Context, botID string, query []float32, k int) ([]Hit, error)
	DeleteByBot(ctx context.Context, botID string) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Ping(ctx context.Context) error
}

// Cosine returns the cosine similarity of a and b, or 0 when undefined.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// rank orders hits by descending score, then ordinal, then document, and keeps k.
func rank(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Ordinal != hits[j].Ordinal {
			return hits[i].Ordinal < hits[j].Ordinal
		}
		if hits[i].DocumentID != hits[j].DocumentID {
			return hits[i].DocumentID < hits[j].DocumentID
		}
		return hits[i].PassageID < hits[j].PassageID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}
