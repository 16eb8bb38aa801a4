package app

import (
	"context"
	"fmt"
	"html"
	"unicode/utf8"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"prayogai-rag/internal/cache"
	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/logger"
	"prayogai-rag/internal/repository"
	"prayogai-rag/internal/vectorindex"
)

const previewRunes = 100

type DocumentView struct {
	model.Document
	Preview string `json:"preview"`
}

type BotStats struct {
	TotalBots         int     `json:"total_bots"`
	ReadyBots         int     `json:"ready_bots"`
	ProcessingBots    int     `json:"processing_bots"`
	FailedBots        int     `json:"failed_bots"`
	TotalDocuments    int64   `json:"total_documents"`
	TotalPassages     int64   `json:"total_passages"`
	TotalMessages     int64   `json:"total_messages"`
	ResponseRate      float64 `json:"response_rate"`
	ErrorRate         float64 `json:"error_rate"`
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
}

// BotService is the owner-facing registry: listing, inspection and cascade delete.
type BotService struct {
	botRepo     *repository.BotRepository
	docRepo     *repository.DocumentRepository
	passageRepo *repository.PassageRepository
	messageRepo *repository.MessageRepository
	index       vectorindex.Index
	cache       cache.RetrievalCache
	publicURL   string
}

func NewBotService(
	botRepo *repository.BotRepository,
	docRepo *repository.DocumentRepository,
	passageRepo *repository.PassageRepository,
	messageRepo *repository.MessageRepository,
	index vectorindex.Index,
	retrievalCache cache.RetrievalCache,
	publicURL string,
) *BotService {
	if retrievalCache == nil {
		retrievalCache = cache.NoopCache{}
	}
	return &BotService{
		botRepo:     botRepo,
		docRepo:     docRepo,
		passageRepo: passageRepo,
		messageRepo: messageRepo,
		index:       index,
		cache:       retrievalCache,
		publicURL:   publicURL,
	}
}

func (s *BotService) List(ctx context.Context, ownerID uint) ([]model.Bot, error) {
	if ownerID == 0 {
		return nil, model.ErrInvalidInput
	}
	return s.botRepo.ListByOwner(ctx, ownerID)
}

func (s *BotService) Get(ctx context.Context, ownerID uint, botID string) (*model.Bot, error) {
	bot, err := s.botRepo.GetByIDAndOwner(ctx, botID, ownerID)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, model.ErrBotNotFound
	}
	return bot, nil
}

func (s *BotService) Documents(ctx context.Context, ownerID uint, botID string) ([]DocumentView, error) {
	if _, err := s.Get(ctx, ownerID, botID); err != nil {
		return nil, err
	}
	docs, err := s.docRepo.ListByBot(ctx, botID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	first, err := s.passageRepo.FirstOfDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]DocumentView, len(docs))
	for i, d := range docs {
		views[i] = DocumentView{Document: d, Preview: preview(first[d.ID].Text)}
	}
	return views, nil
}

func (s *BotService) Stats(ctx context.Context, ownerID uint) (*BotStats, error) {
	bots, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	stats := &BotStats{TotalBots: len(bots)}
	ids := make([]string, len(bots))
	for i, b := range bots {
		ids[i] = b.ID
		switch b.Status {
		case model.BotStatusReady:
			stats.ReadyBots++
		case model.BotStatusProcessing:
			stats.ProcessingBots++
		case model.BotStatusError:
			stats.FailedBots++
		}
	}

	if stats.TotalDocuments, err = s.docRepo.CountByBots(ctx, ids); err != nil {
		return nil, err
	}
	if stats.TotalPassages, err = s.passageRepo.CountByBots(ctx, ids); err != nil {
		return nil, err
	}
	msgStats, err := s.messageRepo.StatsByBots(ctx, ids)
	if err != nil {
		return nil, err
	}
	stats.TotalMessages = msgStats.Total
	stats.AvgResponseTimeMS = msgStats.AvgLatencyMS
	if msgStats.Total > 0 {
		stats.ResponseRate = float64(msgStats.Answered) / float64(msgStats.Total)
		stats.ErrorRate = float64(msgStats.Failed) / float64(msgStats.Total)
	}
	return stats, nil
}

// Delete removes the bot and everything scoped to it. Vectors go first so
// that a partially failed delete never leaves searchable orphans.
func (s *BotService) Delete(ctx context.Context, ownerID uint, botID string) error {
	ctx = logger.AddFields(logger.WithAction(ctx, "delete_bot"), zap.String("bot_id", botID))
	if _, err := s.Get(ctx, ownerID, botID); err != nil {
		return err
	}

	if err := s.index.DeleteByBot(ctx, botID); err != nil {
		return fmt.Errorf("delete bot vectors: %w", err)
	}
	if err := s.passageRepo.DeleteByBot(ctx, botID); err != nil {
		return err
	}
	if err := s.docRepo.DeleteByBot(ctx, botID); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteByBot(ctx, botID); err != nil {
		return err
	}
	if err := s.cache.InvalidateBot(ctx, botID); err != nil {
		ctxzap.Extract(ctx).Warn("invalidate retrieval cache", zap.Error(err))
	}
	if err := s.botRepo.Delete(ctx, botID); err != nil {
		return err
	}
	ctxzap.Extract(ctx).Info("bot deleted")
	return nil
}

// WidgetCode returns the HTML snippet that embeds the chat widget for bot.
func (s *BotService) WidgetCode(bot *model.Bot) string {
	return fmt.Sprintf(`<!-- %s Chatbot Widget -->
<div id="chatbot-widget-%s"></div>
<script src="%s/widget.js" data-bot-id="%s" data-api-url="%s"></script>`,
		html.EscapeString(bot.Name), bot.ID, s.publicURL, bot.ID, s.publicURL)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}
