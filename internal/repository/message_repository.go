package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"prayogai-rag/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByBot(ctx context.Context, botID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Order("created_at ASC, id ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

type MessageStats struct {
	Total        int64
	Answered     int64
	Failed       int64
	AvgLatencyMS float64
}

// StatsByBots aggregates assistant replies for the given bots.
func (r *MessageRepository) StatsByBots(ctx context.Context, botIDs []string) (MessageStats, error) {
	var stats MessageStats
	if len(botIDs) == 0 {
		return stats, nil
	}

	var row struct {
		Total      int64
		Failed     int64
		AvgLatency float64
	}
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN failed THEN 1 ELSE 0 END), 0) AS failed, COALESCE(AVG(latency_ms), 0) AS avg_latency").
		Where("bot_id IN ? AND role = ?", botIDs, model.RoleAssistant).
		Scan(&row).Error
	if err != nil {
		return stats, fmt.Errorf("aggregate messages failed: %w", err)
	}

	stats.Total = row.Total
	stats.Failed = row.Failed
	stats.Answered = row.Total - row.Failed
	stats.AvgLatencyMS = row.AvgLatency
	return stats, nil
}

func (r *MessageRepository) DeleteByBot(ctx context.Context, botID string) error {
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Delete(&model.Message{}).Error; err != nil {
		return fmt.Errorf("delete messages by bot failed: %w", err)
	}
	return nil
}
