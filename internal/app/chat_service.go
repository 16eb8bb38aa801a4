package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/repository"
)

// FallbackResponse is what the widget shows when the model could not answer.
const FallbackResponse = "Sorry, I could not generate a response right now. Please try again later."

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// DirectPublisher writes transcript messages straight to the database. It is
// used when no message queue is configured.
type DirectPublisher struct {
	repo *repository.MessageRepository
}

func NewDirectPublisher(repo *repository.MessageRepository) *DirectPublisher {
	return &DirectPublisher{repo: repo}
}

func (p *DirectPublisher) Publish(ctx context.Context, msg model.Message) error {
	return p.repo.Create(ctx, &msg)
}

type ChatResult struct {
	Response  string `json:"response"`
	Grounded  bool   `json:"grounded"`
	Failed    bool   `json:"-"`
	LatencyMS int64  `json:"-"`
}

// ChatService is the widget-facing entry point. It answers a query and
// records both sides of the exchange.
type ChatService struct {
	rag         *RAGService
	botRepo     *repository.BotRepository
	messageRepo *repository.MessageRepository
	publisher   AsyncMessagePublisher
}

func NewChatService(
	rag *RAGService,
	botRepo *repository.BotRepository,
	messageRepo *repository.MessageRepository,
	publisher AsyncMessagePublisher,
) *ChatService {
	if publisher == nil {
		publisher = NewDirectPublisher(messageRepo)
	}
	return &ChatService{
		rag:         rag,
		botRepo:     botRepo,
		messageRepo: messageRepo,
		publisher:   publisher,
	}
}

// Chat answers query for botID. A generation failure is not an error for
// the caller: the fallback response is returned and the turn is recorded as
// failed.
func (s *ChatService) Chat(ctx context.Context, botID, query string) (*ChatResult, error) {
	query = strings.TrimSpace(query)
	start := time.Now()

	answer, err := s.rag.Answer(ctx, botID, query)
	latency := time.Since(start).Milliseconds()

	result := &ChatResult{LatencyMS: latency}
	switch {
	case err == nil:
		result.Response = answer.Response
		result.Grounded = answer.Grounded
	case errors.Is(err, model.ErrAnswerGenerationFailed):
		result.Response = FallbackResponse
		result.Failed = true
	default:
		return nil, err
	}

	s.record(ctx, botID, query, result)
	return result, nil
}

func (s *ChatService) record(ctx context.Context, botID, query string, result *ChatResult) {
	now := time.Now()
	messages := []model.Message{
		{BotID: botID, Role: model.RoleUser, Content: query, CreatedAt: now},
		{
			BotID:     botID,
			Role:      model.RoleAssistant,
			Content:   result.Response,
			Failed:    result.Failed,
			LatencyMS: result.LatencyMS,
			CreatedAt: now,
		},
	}
	for _, msg := range messages {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			ctxzap.Extract(ctx).Warn("publish transcript message failed",
				zap.String("bot_id", botID), zap.String("role", msg.Role), zap.Error(err))
		}
	}
}

// History returns the most recent transcript of a bot owned by ownerID.
func (s *ChatService) History(ctx context.Context, ownerID uint, botID string, limit int) ([]model.Message, error) {
	bot, err := s.botRepo.GetByIDAndOwner(ctx, botID, ownerID)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, model.ErrBotNotFound
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.messageRepo.ListByBot(ctx, botID, limit)
}
