package vectorindex_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"prayogai-rag/internal/platform/sqlite"
	"prayogai-rag/internal/vectorindex"
)

func engines(t *testing.T) map[string]vectorindex.Index {
	t.Helper()
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlIndex, err := vectorindex.NewSQLIndex(db)
	if err != nil {
		t.Fatalf("new sql index: %v", err)
	}
	return map[string]vectorindex.Index{
		"memory": vectorindex.NewMemoryIndex(),
		"sql":    sqlIndex,
	}
}

func forEachEngine(t *testing.T, fn func(t *testing.T, idx vectorindex.Index)) {
	for name, idx := range engines(t) {
		t.Run(name, func(t *testing.T) { fn(t, idx) })
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		must(t, idx.Upsert(ctx, "bot", "p-far", []float32{0, 1}, vectorindex.Metadata{DocumentID: "d", Ordinal: 0}))
		must(t, idx.Upsert(ctx, "bot", "p-near", []float32{1, 0.1}, vectorindex.Metadata{DocumentID: "d", Ordinal: 1}))
		must(t, idx.Upsert(ctx, "bot", "p-mid", []float32{1, 1}, vectorindex.Metadata{DocumentID: "d", Ordinal: 2}))

		hits, err := idx.Search(ctx, "bot", []float32{1, 0}, 2)
		must(t, err)
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(hits))
		}
		if hits[0].PassageID != "p-near" || hits[1].PassageID != "p-mid" {
			t.Errorf("unexpected ranking %+v", hits)
		}
		if hits[0].Score < hits[1].Score {
			t.Errorf("scores not descending")
		}
	})
}

func TestSearchBreaksTiesByOrdinalThenDocument(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		v := []float32{1, 0}
		must(t, idx.Upsert(ctx, "bot", "p1", v, vectorindex.Metadata{DocumentID: "doc-b", Ordinal: 0}))
		must(t, idx.Upsert(ctx, "bot", "p2", v, vectorindex.Metadata{DocumentID: "doc-a", Ordinal: 1}))
		must(t, idx.Upsert(ctx, "bot", "p3", v, vectorindex.Metadata{DocumentID: "doc-a", Ordinal: 0}))

		hits, err := idx.Search(ctx, "bot", v, 3)
		must(t, err)
		want := []string{"p3", "p1", "p2"}
		for i, h := range hits {
			if h.PassageID != want[i] {
				t.Fatalf("expected order %v, got %+v", want, hits)
			}
		}
	})
}

func TestUpsertIsIdempotent(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		meta := vectorindex.Metadata{DocumentID: "d", Ordinal: 0}
		must(t, idx.Upsert(ctx, "bot", "p", []float32{0, 1}, meta))
		must(t, idx.Upsert(ctx, "bot", "p", []float32{1, 0}, meta))

		hits, err := idx.Search(ctx, "bot", []float32{1, 0}, 10)
		must(t, err)
		if len(hits) != 1 {
			t.Fatalf("expected 1 hit, got %d", len(hits))
		}
		if hits[0].Score < 0.99 {
			t.Errorf("expected the second upsert to win, score %v", hits[0].Score)
		}
	})
}

func TestSearchIsScopedToBotUnderConcurrency(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		bots := []string{"bot-a", "bot-b", "bot-c"}

		var wg sync.WaitGroup
		for _, bot := range bots {
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func(bot string, i int) {
					defer wg.Done()
					id := fmt.Sprintf("%s-%d", bot, i)
					if err := idx.Upsert(ctx, bot, id, []float32{1, float32(i)}, vectorindex.Metadata{DocumentID: bot + "-doc", Ordinal: i}); err != nil {
						t.Errorf("upsert %s: %v", id, err)
					}
				}(bot, i)
				go func(bot string) {
					defer wg.Done()
					hits, err := idx.Search(ctx, bot, []float32{1, 1}, 100)
					if err != nil {
						t.Errorf("search %s: %v", bot, err)
						return
					}
					for _, h := range hits {
						if h.DocumentID != bot+"-doc" {
							t.Errorf("%s: leaked passage %s while writing", bot, h.PassageID)
						}
					}
				}(bot)
			}
		}
		wg.Wait()

		for _, bot := range bots {
			hits, err := idx.Search(ctx, bot, []float32{1, 1}, 100)
			must(t, err)
			if len(hits) != 20 {
				t.Errorf("%s: expected 20 hits, got %d", bot, len(hits))
			}
			for _, h := range hits {
				if h.DocumentID != bot+"-doc" {
					t.Errorf("%s: leaked passage %s", bot, h.PassageID)
				}
			}
		}
	})
}

func TestUpsertBatch(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		points := make([]vectorindex.Point, 300)
		for i := range points {
			points[i] = vectorindex.Point{
				PassageID: fmt.Sprintf("p%03d", i),
				Vector:    []float32{1, float32(i)},
				Metadata:  vectorindex.Metadata{DocumentID: "d", Ordinal: i},
			}
		}
		must(t, idx.UpsertBatch(ctx, "bot", points))
		must(t, idx.UpsertBatch(ctx, "bot", nil))

		// Rewriting a point replaces it.
		points[0].Vector = []float32{0, 1}
		must(t, idx.UpsertBatch(ctx, "bot", points[:1]))

		hits, err := idx.Search(ctx, "bot", []float32{1, 0}, 1000)
		must(t, err)
		if len(hits) != len(points) {
			t.Fatalf("expected %d hits, got %d", len(points), len(hits))
		}
		if last := hits[len(hits)-1]; last.PassageID != "p000" {
			t.Errorf("expected the rewritten point to score lowest, got %s", last.PassageID)
		}
		if hits, _ := idx.Search(ctx, "other", []float32{1, 0}, 10); len(hits) != 0 {
			t.Errorf("batch leaked into another bot: %+v", hits)
		}
	})
}

func TestDeleteByBotAndDocument(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		ctx := context.Background()
		v := []float32{1, 0}
		must(t, idx.Upsert(ctx, "a", "a1", v, vectorindex.Metadata{DocumentID: "da1"}))
		must(t, idx.Upsert(ctx, "a", "a2", v, vectorindex.Metadata{DocumentID: "da2"}))
		must(t, idx.Upsert(ctx, "b", "b1", v, vectorindex.Metadata{DocumentID: "db1"}))

		must(t, idx.DeleteByDocument(ctx, "da1"))
		hits, err := idx.Search(ctx, "a", v, 10)
		must(t, err)
		if len(hits) != 1 || hits[0].PassageID != "a2" {
			t.Errorf("expected only a2 after document delete, got %+v", hits)
		}

		must(t, idx.DeleteByBot(ctx, "a"))
		hits, err = idx.Search(ctx, "a", v, 10)
		must(t, err)
		if len(hits) != 0 {
			t.Errorf("expected no hits after bot delete, got %+v", hits)
		}

		hits, err = idx.Search(ctx, "b", v, 10)
		must(t, err)
		if len(hits) != 1 {
			t.Errorf("deleting bot a affected bot b: %+v", hits)
		}
	})
}

func TestSearchUnknownBot(t *testing.T) {
	forEachEngine(t, func(t *testing.T, idx vectorindex.Index) {
		hits, err := idx.Search(context.Background(), "nobody", []float32{1}, 5)
		must(t, err)
		if len(hits) != 0 {
			t.Errorf("expected no hits, got %+v", hits)
		}
	})
}

func TestCosine(t *testing.T) {
	if got := vectorindex.Cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors scored %v", got)
	}
	if got := vectorindex.Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors scored %v", got)
	}
	if got := vectorindex.Cosine([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths scored %v", got)
	}
	if got := vectorindex.Cosine([]float32{0, 0}, []float32{1, 0}); got != 0 {
		t.Errorf("zero vector scored %v", got)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
