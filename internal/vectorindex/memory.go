package vectorindex

import (
	"context"
	"sync"
)

type entry struct {
	vector []float32
	meta   Metadata
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// MemoryIndex keeps one locked shard per bot so tenants never contend.
type MemoryIndex struct {
	mu     sync.RWMutex
	shards map[string]*shard
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{shards: make(map[string]*shard)}
}

func (m *MemoryIndex) shard(botID string, create bool) *shard {
	m.mu.RLock()
	s, ok := m.shards[botID]
	m.mu.RUnlock()
	if ok || !create {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.shards[botID]; !ok {
		s = &shard{entries: make(map[string]entry)}
		m.shards[botID] = s
	}
	return s
}

func (m *MemoryIndex) Upsert(ctx context.Context, botID, passageID string, vector []float32, meta Metadata) error {
	return m.UpsertBatch(ctx, botID, []Point{{PassageID: passageID, Vector: vector, Metadata: meta}})
}

func (m *MemoryIndex) UpsertBatch(ctx context.Context, botID string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	entries := make(map[string]entry, len(points))
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		entries[p.PassageID] = entry{vector: vec, meta: p.Metadata}
	}

	s := m.shard(botID, true)
	s.mu.Lock()
	for id, e := range entries {
		s.entries[id] = e
	}
	s.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, botID string, query []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := m.shard(botID, false)
	if s == nil || k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]Hit, 0, len(s.entries))
	for id, e := range s.entries {
		hits = append(hits, Hit{
			PassageID:  id,
			DocumentID: e.meta.DocumentID,
			Ordinal:    e.meta.Ordinal,
			Score:      Cosine(query, e.vector),
		})
	}
	s.mu.RUnlock()

	return rank(hits, k), nil
}

func (m *MemoryIndex) DeleteByBot(_ context.Context, botID string) error {
	m.mu.Lock()
	delete(m.shards, botID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.RLock()
	shards := make([]*shard, 0, len(m.shards))
	for _, s := range m.shards {
		shards = append(shards, s)
	}
	m.mu.RUnlock()

	for _, s := range shards {
		s.mu.Lock()
		for id, e := range s.entries {
			if e.meta.DocumentID == documentID {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
	return nil
}

func (m *MemoryIndex) Ping(context.Context) error {
	return nil
}
