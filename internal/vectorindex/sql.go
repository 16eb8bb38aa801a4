package vectorindex

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prayogai-rag/internal/model"
)

const sqlBatchSize = 200

// PassageVector is the row layout of the SQL engine.
type PassageVector struct {
	PassageID  string `gorm:"primaryKey;size:36"`
	BotID      string `gorm:"size:36;not null;index"`
	DocumentID string `gorm:"size:36;not null;index"`
	Ordinal    int    `gorm:"not null"`
	Vector     []byte `gorm:"type:blob;not null"`
}

func (PassageVector) TableName() string {
	return "passage_vectors"
}

// SQLIndex scores every vector of a bot in process. It suits small tenants
// and deployments without a vector database.
type SQLIndex struct {
	db *gorm.DB
}

func NewSQLIndex(db *gorm.DB) (*SQLIndex, error) {
	if err := db.AutoMigrate(&PassageVector{}); err != nil {
		return nil, fmt.Errorf("migrate passage vectors failed: %w", err)
	}
	return &SQLIndex{db: db}, nil
}

func (s *SQLIndex) Upsert(ctx context.Context, botID, passageID string, vector []float32, meta Metadata) error {
	return s.UpsertBatch(ctx, botID, []Point{{PassageID: passageID, Vector: vector, Metadata: meta}})
}

func (s *SQLIndex) UpsertBatch(ctx context.Context, botID string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]PassageVector, len(points))
	for i, p := range points {
		rows[i] = PassageVector{
			PassageID:  p.PassageID,
			BotID:      botID,
			DocumentID: p.Metadata.DocumentID,
			Ordinal:    p.Metadata.Ordinal,
			Vector:     model.EncodeVector(p.Vector),
		}
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "passage_id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, sqlBatchSize).Error
	if err != nil {
		return fmt.Errorf("%w: upsert vectors: %v", model.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *SQLIndex) Search(ctx context.Context, botID string, query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	var rows []PassageVector
	if err := s.db.WithContext(ctx).Where("bot_id = ?", botID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: search vectors: %v", model.ErrIndexUnavailable, err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, Hit{
			PassageID:  r.PassageID,
			DocumentID: r.DocumentID,
			Ordinal:    r.Ordinal,
			Score:      Cosine(query, model.DecodeVector(r.Vector)),
		})
	}
	return rank(hits, k), nil
}

func (s *SQLIndex) DeleteByBot(ctx context.Context, botID string) error {
	if err := s.db.WithContext(ctx).Where("bot_id = ?", botID).Delete(&PassageVector{}).Error; err != nil {
		return fmt.Errorf("%w: delete bot vectors: %v", model.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *SQLIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&PassageVector{}).Error; err != nil {
		return fmt.Errorf("%w: delete document vectors: %v", model.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *SQLIndex) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
