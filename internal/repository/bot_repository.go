package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"prayogai-rag/internal/model"
)

type BotRepository struct {
	db *gorm.DB
}

func NewBotRepository(db *gorm.DB) *BotRepository {
	return &BotRepository{db: db}
}

func (r *BotRepository) Create(ctx context.Context, bot *model.Bot) error {
	if err := r.db.WithContext(ctx).Create(bot).Error; err != nil {
		return fmt.Errorf("create bot failed: %w", err)
	}
	return nil
}

func (r *BotRepository) GetByID(ctx context.Context, id string) (*model.Bot, error) {
	var bot model.Bot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query bot by id failed: %w", err)
	}
	return &bot, nil
}

func (r *BotRepository) GetByIDAndOwner(ctx context.Context, id string, ownerID uint) (*model.Bot, error) {
	var bot model.Bot
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query bot by id and owner failed: %w", err)
	}
	return &bot, nil
}

func (r *BotRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Bot, error) {
	var bots []model.Bot
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&bots).Error; err != nil {
		return nil, fmt.Errorf("list bots failed: %w", err)
	}
	return bots, nil
}

// FinishProcessing moves a bot out of processing. It reports false when the
// bot was no longer processing, e.g. because it was deleted meanwhile.
func (r *BotRepository) FinishProcessing(ctx context.Context, id string, status model.BotStatus, errMsg string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Bot{}).
		Where("id = ? AND status = ?", id, model.BotStatusProcessing).
		Updates(map[string]any{"status": status, "error_message": errMsg})
	if res.Error != nil {
		return false, fmt.Errorf("update bot status failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *BotRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Bot{}).Error; err != nil {
		return fmt.Errorf("delete bot failed: %w", err)
	}
	return nil
}
