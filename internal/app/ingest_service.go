package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"prayogai-rag/internal/ai"
	"prayogai-rag/internal/chunker"
	"prayogai-rag/internal/model"
	"prayogai-rag/internal/pkg/extract"
	"prayogai-rag/internal/pkg/logger"
	"prayogai-rag/internal/repository"
	"prayogai-rag/internal/vectorindex"
)

const (
	rollbackTimeout = 30 * time.Second
	// MaxBotNameRunes matches the size of the bots.name column.
	MaxBotNameRunes = 128
	maxReasonRunes  = 500
)

type IngestConfig struct {
	ChunkTokens   int
	OverlapTokens int
	// Concurrency bounds in-flight files across all bots.
	Concurrency  int
	Timeout      time.Duration
	MaxFileBytes int64
	MaxFiles     int
}

type UploadFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

type StartInput struct {
	OwnerID uint
	Name    string
	Files   []UploadFile
}

// IngestService turns uploaded files into a queryable bot in the background.
type IngestService struct {
	botRepo     *repository.BotRepository
	docRepo     *repository.DocumentRepository
	passageRepo *repository.PassageRepository
	index       vectorindex.Index
	embedder    ai.Embedder
	cfg         IngestConfig

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewIngestService(
	botRepo *repository.BotRepository,
	docRepo *repository.DocumentRepository,
	passageRepo *repository.PassageRepository,
	index vectorindex.Index,
	embedder ai.Embedder,
	cfg IngestConfig,
) *IngestService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &IngestService{
		botRepo:     botRepo,
		docRepo:     docRepo,
		passageRepo: passageRepo,
		index:       index,
		embedder:    embedder,
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(cfg.Concurrency)),
	}
}

// Start validates the upload, creates the bot in processing state and
// schedules ingestion. The returned bot is always in processing state.
// Ingestion outlives ctx but is bounded by the configured timeout.
func (s *IngestService) Start(ctx context.Context, input StartInput) (*model.Bot, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	bot := &model.Bot{
		ID:      uuid.NewString(),
		OwnerID: input.OwnerID,
		Name:    input.Name,
		Status:  model.BotStatusProcessing,
	}
	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(logger.Detach(ctx), s.cfg.Timeout)
	runCtx = logger.AddFields(runCtx, zap.String("bot_id", bot.ID))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		_ = s.Run(runCtx, bot.ID, input.Files)
	}()
	return bot, nil
}

// Wait blocks until every scheduled ingestion has finished.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

func (s *IngestService) validate(input *StartInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.OwnerID == 0 || input.Name == "" {
		return fmt.Errorf("%w: company name is required", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(input.Name) > MaxBotNameRunes {
		return fmt.Errorf("%w: company name exceeds %d characters", model.ErrInvalidInput, MaxBotNameRunes)
	}
	if len(input.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required", model.ErrInvalidInput)
	}
	if s.cfg.MaxFiles > 0 && len(input.Files) > s.cfg.MaxFiles {
		return fmt.Errorf("%w: too many files (max %d)", model.ErrInvalidInput, s.cfg.MaxFiles)
	}
	for _, f := range input.Files {
		if _, err := extract.ForFilename(f.Filename); err != nil {
			return fmt.Errorf("%s: %w", f.Filename, err)
		}
		if len(f.Content) == 0 {
			return fmt.Errorf("%w: %s is empty", model.ErrInvalidInput, f.Filename)
		}
		if s.cfg.MaxFileBytes > 0 && int64(len(f.Content)) > s.cfg.MaxFileBytes {
			return fmt.Errorf("%w: %s exceeds %d bytes", model.ErrInvalidInput, f.Filename, s.cfg.MaxFileBytes)
		}
	}
	return nil
}

// Run ingests every file of the bot concurrently. On any failure the bot's
// vectors, passages and documents are removed and the bot moves to error.
func (s *IngestService) Run(ctx context.Context, botID string, files []UploadFile) error {
	ctx = logger.WithAction(ctx, "ingest")
	log := ctxzap.Extract(ctx)
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)
			return s.ingestFile(gctx, botID, f)
		})
	}
	runErr := g.Wait()
	if err := ctx.Err(); err != nil {
		runErr = errors.Join(err, runErr)
	}

	finishCtx, cancel := context.WithTimeout(logger.Detach(ctx), rollbackTimeout)
	defer cancel()

	if runErr != nil {
		log.Warn("ingestion failed", zap.Error(runErr), zap.Duration("elapsed", time.Since(started)))
		s.rollback(finishCtx, botID)
		if _, err := s.botRepo.FinishProcessing(finishCtx, botID, model.BotStatusError, failureReason(runErr)); err != nil {
			log.Error("mark bot failed", zap.Error(err))
		}
		return runErr
	}

	ok, err := s.botRepo.FinishProcessing(finishCtx, botID, model.BotStatusReady, "")
	if err != nil {
		log.Error("mark bot ready", zap.Error(err))
		return err
	}
	if !ok {
		// The bot was deleted while we were indexing; drop what we wrote.
		log.Info("bot removed during ingestion, discarding results")
		s.rollback(finishCtx, botID)
		return model.ErrBotNotFound
	}
	log.Info("ingestion finished", zap.Int("files", len(files)), zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (s *IngestService) ingestFile(ctx context.Context, botID string, f UploadFile) error {
	text, err := extract.Text(ctx, f.Filename, f.Content)
	if err != nil {
		return err
	}

	chunks, err := chunker.Split(text, s.cfg.ChunkTokens, s.cfg.OverlapTokens)
	if err != nil {
		return err
	}

	// Identity and order are fixed before any embedding call.
	doc := &model.Document{
		ID:           uuid.NewString(),
		BotID:        botID,
		Filename:     f.Filename,
		SizeBytes:    int64(len(f.Content)),
		ContentType:  f.ContentType,
		PassageCount: len(chunks),
	}
	passages := make([]model.Passage, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		passages[i] = model.Passage{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			BotID:      botID,
			Ordinal:    c.Ordinal,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			SpanStart:  c.Span.Start,
			SpanEnd:    c.Span.End,
		}
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s: %w", f.Filename, err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("%w: embed %s: expected %d vectors, got %d", model.ErrEmbeddingProvider, f.Filename, len(passages), len(vectors))
	}

	points := make([]vectorindex.Point, len(passages))
	for i := range passages {
		passages[i].SetEmbedding(vectors[i])
		points[i] = vectorindex.Point{
			PassageID: passages[i].ID,
			Vector:    vectors[i],
			Metadata:  vectorindex.Metadata{DocumentID: doc.ID, Ordinal: passages[i].Ordinal},
		}
	}

	if err := s.index.UpsertBatch(ctx, botID, points); err != nil {
		s.undoDocument(ctx, doc.ID)
		return fmt.Errorf("index %s: %w", f.Filename, err)
	}
	if err := s.docRepo.CreateWithPassages(ctx, doc, passages); err != nil {
		s.undoDocument(ctx, doc.ID)
		return err
	}
	ctxzap.Extract(ctx).Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.String("filename", f.Filename),
		zap.Int("passages", len(passages)),
	)
	return nil
}

// undoDocument removes the vectors a failed file may have written.
func (s *IngestService) undoDocument(ctx context.Context, documentID string) {
	undoCtx, cancel := context.WithTimeout(logger.Detach(ctx), rollbackTimeout)
	defer cancel()
	if err := s.index.DeleteByDocument(undoCtx, documentID); err != nil {
		ctxzap.Extract(ctx).Error("undo document vectors", zap.String("document_id", documentID), zap.Error(err))
	}
}

func (s *IngestService) rollback(ctx context.Context, botID string) {
	log := ctxzap.Extract(ctx)
	if err := s.index.DeleteByBot(ctx, botID); err != nil {
		log.Error("rollback vectors", zap.Error(err))
	}
	if err := s.passageRepo.DeleteByBot(ctx, botID); err != nil {
		log.Error("rollback passages", zap.Error(err))
	}
	if err := s.docRepo.DeleteByBot(ctx, botID); err != nil {
		log.Error("rollback documents", zap.Error(err))
	}
}

// failureReason is shown to the bot owner, so provider details stay in the logs.
func failureReason(err error) string {
	var reason string
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "ingestion timed out"
	case errors.Is(err, model.ErrExtraction), errors.Is(err, model.ErrInvalidInput):
		reason = err.Error()
	case errors.Is(err, model.ErrEmbeddingProvider):
		reason = "embedding provider unavailable"
	case errors.Is(err, model.ErrIndexUnavailable):
		reason = "vector index unavailable"
	default:
		reason = "internal error"
	}
	if r := []rune(reason); len(r) > maxReasonRunes {
		reason = string(r[:maxReasonRunes])
	}
	return reason
}
