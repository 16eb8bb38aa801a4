package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"prayogai-rag/internal/model"
	"prayogai-rag/internal/platform/sqlite"
	"prayogai-rag/internal/repository"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBotFinishProcessingOnlyOnce(t *testing.T) {
	ctx := context.Background()
	bots := repository.NewBotRepository(newDB(t))

	bot := &model.Bot{ID: "b1", OwnerID: 1, Name: "Acme", Status: model.BotStatusProcessing}
	if err := bots.Create(ctx, bot); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := bots.FinishProcessing(ctx, "b1", model.BotStatusReady, "")
	if err != nil || !ok {
		t.Fatalf("expected first transition to succeed, got %v, %v", ok, err)
	}
	ok, err = bots.FinishProcessing(ctx, "b1", model.BotStatusError, "late failure")
	if err != nil || ok {
		t.Fatalf("expected second transition to be ignored, got %v, %v", ok, err)
	}

	got, _ := bots.GetByID(ctx, "b1")
	if got.Status != model.BotStatusReady {
		t.Errorf("expected ready, got %s", got.Status)
	}
	if other, _ := bots.GetByIDAndOwner(ctx, "b1", 2); other != nil {
		t.Error("bot visible to another owner")
	}
	if missing, err := bots.GetByID(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("expected nil, nil for a missing bot, got %v, %v", missing, err)
	}
}

func TestPassagesAreScopedToBot(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	docs := repository.NewDocumentRepository(db)
	passages := repository.NewPassageRepository(db)

	for _, bot := range []string{"a", "b"} {
		doc := &model.Document{ID: "doc-" + bot, BotID: bot, Filename: bot + ".txt", PassageCount: 2}
		ps := []model.Passage{
			{ID: bot + "-0", DocumentID: doc.ID, BotID: bot, Ordinal: 0, Text: "first " + bot},
			{ID: bot + "-1", DocumentID: doc.ID, BotID: bot, Ordinal: 1, Text: "second " + bot},
		}
		if err := docs.CreateWithPassages(ctx, doc, ps); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := passages.ListByBotAndIDs(ctx, "a", []string{"a-0", "b-0", "b-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a-0" {
		t.Errorf("expected only a-0, got %+v", got)
	}

	first, err := passages.FirstOfDocuments(ctx, []string{"doc-a", "doc-b"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first["doc-a"].Text != "first a" || first["doc-b"].Text != "first b" {
		t.Errorf("unexpected first passages %+v", first)
	}

	if n, _ := passages.CountByBots(ctx, []string{"a"}); n != 2 {
		t.Errorf("expected 2 passages for a, got %d", n)
	}

	if err := passages.DeleteByBot(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := docs.DeleteByBot(ctx, "a"); err != nil {
		t.Fatalf("delete docs: %v", err)
	}
	if n, _ := passages.CountByBots(ctx, []string{"a", "b"}); n != 2 {
		t.Errorf("expected only b's passages to remain, got %d", n)
	}
	if n, _ := docs.CountByBots(ctx, []string{"a", "b"}); n != 1 {
		t.Errorf("expected 1 document left, got %d", n)
	}
}

func TestMessageStats(t *testing.T) {
	ctx := context.Background()
	messages := repository.NewMessageRepository(newDB(t))

	seed := []model.Message{
		{BotID: "a", Role: model.RoleUser, Content: "q1"},
		{BotID: "a", Role: model.RoleAssistant, Content: "r1", LatencyMS: 100},
		{BotID: "a", Role: model.RoleUser, Content: "q2"},
		{BotID: "a", Role: model.RoleAssistant, Content: "sorry", Failed: true, LatencyMS: 300},
		{BotID: "b", Role: model.RoleAssistant, Content: "other", LatencyMS: 1000},
	}
	for i := range seed {
		if err := messages.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	stats, err := messages.StatsByBots(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Failed != 1 || stats.Answered != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.AvgLatencyMS != 200 {
		t.Errorf("expected avg latency 200, got %v", stats.AvgLatencyMS)
	}

	history, _ := messages.ListByBot(ctx, "a", 10)
	if len(history) != 4 || history[0].Content != "q1" {
		t.Errorf("unexpected history %+v", history)
	}

	if err := messages.DeleteByBot(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if history, _ := messages.ListByBot(ctx, "a", 10); len(history) != 0 {
		t.Errorf("expected no messages after delete")
	}
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(newDB(t))

	if err := users.Create(ctx, &model.User{Username: "alice", Email: "a@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	byName, err := users.GetByUsername(ctx, "alice")
	if err != nil || byName == nil {
		t.Fatalf("expected alice, got %v, %v", byName, err)
	}
	byEmail, _ := users.GetByEmail(ctx, "a@example.com")
	byID, _ := users.GetByID(ctx, byName.ID)
	if byEmail == nil || byID == nil || byID.Username != "alice" {
		t.Error("lookups disagree")
	}
	if missing, err := users.GetByUsername(ctx, "bob"); missing != nil || err != nil {
		t.Errorf("expected nil, nil, got %v, %v", missing, err)
	}
}
