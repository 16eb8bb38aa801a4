package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"prayogai-rag/internal/model"
)

type PassageRepository struct {
	db *gorm.DB
}

func NewPassageRepository(db *gorm.DB) *PassageRepository {
	return &PassageRepository{db: db}
}

// ListByBotAndIDs hydrates search hits. The bot filter keeps a stale or
// foreign passage ID from ever leaking into another bot's context.
func (r *PassageRepository) ListByBotAndIDs(ctx context.Context, botID string, ids []string) ([]model.Passage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var passages []model.Passage
	if err := r.db.WithContext(ctx).Where("bot_id = ? AND id IN ?", botID, ids).Find(&passages).Error; err != nil {
		return nil, fmt.Errorf("list passages by ids failed: %w", err)
	}
	return passages, nil
}

// FirstOfDocuments returns the ordinal 0 passage of each document, keyed by document ID.
func (r *PassageRepository) FirstOfDocuments(ctx context.Context, documentIDs []string) (map[string]model.Passage, error) {
	if len(documentIDs) == 0 {
		return map[string]model.Passage{}, nil
	}
	var passages []model.Passage
	if err := r.db.WithContext(ctx).Where("document_id IN ? AND ordinal = 0", documentIDs).Find(&passages).Error; err != nil {
		return nil, fmt.Errorf("list first passages failed: %w", err)
	}
	out := make(map[string]model.Passage, len(passages))
	for _, p := range passages {
		out[p.DocumentID] = p
	}
	return out, nil
}

func (r *PassageRepository) CountByBots(ctx context.Context, botIDs []string) (int64, error) {
	if len(botIDs) == 0 {
		return 0, nil
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Passage{}).Where("bot_id IN ?", botIDs).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count passages failed: %w", err)
	}
	return n, nil
}

func (r *PassageRepository) DeleteByBot(ctx context.Context, botID string) error {
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Delete(&model.Passage{}).Error; err != nil {
		return fmt.Errorf("delete passages by bot failed: %w", err)
	}
	return nil
}
