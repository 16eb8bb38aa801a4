package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"prayogai-rag/internal/model"
)

const (
	payloadBotID      = "bot_id"
	payloadDocumentID = "document_id"
	payloadOrdinal    = "ordinal"

	qdrantBatchSize = 256
)

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex keeps all bots in one collection and filters every request by
// bot_id or document_id payload. The collection is created on first write
// with the dimension of that vector.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	wait       bool

	mu    sync.Mutex
	ready bool
}

func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client failed: %w", err)
	}
	return &QdrantIndex{
		client:     c,
		collection: cfg.Collection,
		wait:       true,
	}, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, dim int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return err
	}
	if !exists {
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return err
		}
		for _, field := range []string{payloadBotID, payloadDocumentID} {
			_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: q.collection,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
				Wait:           &q.wait,
			})
			if err != nil {
				return err
			}
		}
	}
	q.ready = true
	return nil
}

// exists reports whether the collection is there without creating it.
func (q *QdrantIndex) exists(ctx context.Context) (bool, error) {
	q.mu.Lock()
	ready := q.ready
	q.mu.Unlock()
	if ready {
		return true, nil
	}
	return q.client.CollectionExists(ctx, q.collection)
}

func (q *QdrantIndex) Upsert(ctx context.Context, botID, passageID string, vector []float32, meta Metadata) error {
	return q.UpsertBatch(ctx, botID, []Point{{PassageID: passageID, Vector: vector, Metadata: meta}})
}

// UpsertBatch writes points in requests of at most qdrantBatchSize and waits
// once per request.
func (q *QdrantIndex) UpsertBatch(ctx context.Context, botID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, len(points[0].Vector)); err != nil {
		return fmt.Errorf("%w: ensure collection: %v", model.ErrIndexUnavailable, err)
	}
	for start := 0; start < len(points); start += qdrantBatchSize {
		end := min(start+qdrantBatchSize, len(points))
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(p.PassageID),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadBotID:      botID,
					payloadDocumentID: p.Metadata.DocumentID,
					payloadOrdinal:    int64(p.Metadata.Ordinal),
				}),
			})
		}
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.collection,
			Wait:           &q.wait,
			Points:         batch,
		})
		if err != nil {
			return fmt.Errorf("%w: upsert points: %v", model.ErrIndexUnavailable, err)
		}
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, botID string, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	ok, err := q.exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: check collection: %v", model.ErrIndexUnavailable, err)
	}
	if !ok {
		return nil, nil
	}

	limit := uint64(k)
	res, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         matchFilter(payloadBotID, botID),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query points: %v", model.ErrIndexUnavailable, err)
	}

	hits := make([]Hit, 0, len(res))
	for _, sp := range res {
		// The filter already scopes the query; this guards against a misconfigured index.
		if sp.Payload[payloadBotID].GetStringValue() != botID {
			continue
		}
		hits = append(hits, Hit{
			PassageID:  sp.Id.GetUuid(),
			DocumentID: sp.Payload[payloadDocumentID].GetStringValue(),
			Ordinal:    int(sp.Payload[payloadOrdinal].GetIntegerValue()),
			Score:      sp.Score,
		})
	}
	return rank(hits, k), nil
}

func (q *QdrantIndex) DeleteByBot(ctx context.Context, botID string) error {
	return q.deleteWhere(ctx, payloadBotID, botID)
}

func (q *QdrantIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return q.deleteWhere(ctx, payloadDocumentID, documentID)
}

func (q *QdrantIndex) deleteWhere(ctx context.Context, key, value string) error {
	ok, err := q.exists(ctx)
	if err != nil {
		return fmt.Errorf("%w: check collection: %v", model.ErrIndexUnavailable, err)
	}
	if !ok {
		return nil
	}
	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           &q.wait,
		Points:         qdrant.NewPointsSelectorFilter(matchFilter(key, value)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete points by %s: %v", model.ErrIndexUnavailable, key, err)
	}
	return nil
}

func (q *QdrantIndex) Ping(ctx context.Context) error {
	_, err := q.client.HealthCheck(ctx)
	return err
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func matchFilter(key, value string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(key, value)},
	}
}
