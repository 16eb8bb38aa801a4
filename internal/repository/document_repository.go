package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"prayogai-rag/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateWithPassages records a document and all of its passages atomically.
func (r *DocumentRepository) CreateWithPassages(ctx context.Context, doc *model.Document, passages []model.Passage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		if len(passages) == 0 {
			return nil
		}
		return tx.CreateInBatches(&passages, 100).Error
	})
	if err != nil {
		return fmt.Errorf("create document %s failed: %w", doc.Filename, err)
	}
	return nil
}

func (r *DocumentRepository) ListByBot(ctx context.Context, botID string) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Order("created_at ASC, filename ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CountByBots(ctx context.Context, botIDs []string) (int64, error) {
	if len(botIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Document{}).Where("bot_id IN ?", botIDs).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}

func (r *DocumentRepository) DeleteByBot(ctx context.Context, botID string) error {
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents by bot failed: %w", err)
	}
	return nil
}
