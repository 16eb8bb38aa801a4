package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"prayogai-rag/internal/ai"
	"prayogai-rag/internal/cache"
	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/logger"
	"prayogai-rag/internal/pkg/retry"
	"prayogai-rag/internal/repository"
	"prayogai-rag/internal/vectorindex"
)

const emptyModelResponse = "The model returned an empty response."

type RAGConfig struct {
	TopK          int
	MinSimilarity float32
}

type ScoredPassage struct {
	Passage model.Passage `json:"passage"`
	Score   float32       `json:"score"`
}

type Answer struct {
	Response string          `json:"response"`
	Passages []ScoredPassage `json:"passages"`
	// Grounded is false when no passage cleared the similarity threshold.
	Grounded bool `json:"grounded"`
}

// RAGService answers questions against one bot's passages.
type RAGService struct {
	botRepo     *repository.BotRepository
	passageRepo *repository.PassageRepository
	index       vectorindex.Index
	embedder    ai.Embedder
	completer   ai.Completer
	cache       cache.RetrievalCache
	readPolicy  retry.Policy
	cfg         RAGConfig
}

func NewRAGService(
	botRepo *repository.BotRepository,
	passageRepo *repository.PassageRepository,
	index vectorindex.Index,
	embedder ai.Embedder,
	completer ai.Completer,
	retrievalCache cache.RetrievalCache,
	readPolicy retry.Policy,
	cfg RAGConfig,
) *RAGService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if retrievalCache == nil {
		retrievalCache = cache.NoopCache{}
	}
	return &RAGService{
		botRepo:     botRepo,
		passageRepo: passageRepo,
		index:       index,
		embedder:    embedder,
		completer:   completer,
		cache:       retrievalCache,
		readPolicy: readPolicy.WithRetryable(func(err error) bool {
			return errors.Is(err, model.ErrIndexUnavailable)
		}),
		cfg: cfg,
	}
}

// Answer retrieves the bot's most similar passages and asks the model to
// answer from them alone.
func (s *RAGService) Answer(ctx context.Context, botID, query string) (*Answer, error) {
	ctx = logger.AddFields(logger.WithAction(ctx, "answer"), zap.String("bot_id", botID))

	query = strings.TrimSpace(query)
	if botID == "" || query == "" {
		return nil, fmt.Errorf("%w: bot id and query are required", model.ErrInvalidInput)
	}

	bot, err := s.botRepo.GetByID(ctx, botID)
	if err != nil {
		return nil, err
	}
	if bot == nil {
		return nil, model.ErrBotNotFound
	}
	if bot.Status != model.BotStatusReady {
		return nil, model.ErrBotNotReady
	}

	passages, err := s.Retrieve(ctx, botID, query)
	if err != nil {
		return nil, err
	}

	messages := BuildPrompt(bot.Name, passages, query)
	response, err := s.completer.Complete(ctx, messages)
	if err != nil {
		ctxzap.Extract(ctx).Warn("completion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrAnswerGenerationFailed, err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		response = emptyModelResponse
	}

	return &Answer{
		Response: response,
		Passages: passages,
		Grounded: len(passages) > 0,
	}, nil
}

// Retrieve returns passages of the bot scoring at least the configured
// similarity, best first.
func (s *RAGService) Retrieve(ctx context.Context, botID, query string) ([]ScoredPassage, error) {
	log := ctxzap.Extract(ctx)

	hits, cached, err := s.cache.Get(ctx, botID, query)
	if err != nil {
		log.Warn("retrieval cache read failed", zap.Error(err))
	}
	if !cached {
		hits, err = s.search(ctx, botID, query)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, botID, query, hits); err != nil {
			log.Warn("retrieval cache write failed", zap.Error(err))
		}
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Score >= s.cfg.MinSimilarity {
			ids = append(ids, h.PassageID)
		}
	}
	rows, err := s.passageRepo.ListByBotAndIDs(ctx, botID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Passage, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	passages := make([]ScoredPassage, 0, len(ids))
	for _, h := range hits {
		p, ok := byID[h.PassageID]
		if !ok || h.Score < s.cfg.MinSimilarity {
			continue
		}
		passages = append(passages, ScoredPassage{Passage: p, Score: h.Score})
	}
	log.Debug("retrieved passages", zap.Int("hits", len(hits)), zap.Int("kept", len(passages)), zap.Bool("cached", cached))
	return passages, nil
}

func (s *RAGService) search(ctx context.Context, botID, query string) ([]vectorindex.Hit, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", model.ErrEmbeddingProvider, len(vectors))
	}

	return retry.DoWithData(ctx, s.readPolicy, func() ([]vectorindex.Hit, error) {
		return s.index.Search(ctx, botID, vectors[0], s.cfg.TopK)
	})
}
