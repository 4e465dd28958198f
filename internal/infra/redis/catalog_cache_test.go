package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"adaptive-quiz-engine/internal/domain"
	"adaptive-quiz-engine/internal/infra/memory"
)

type countingLoader struct {
	*memory.StaticCatalog
	chapterLoads  int
	questionLoads int
	pointLoads    int
}

func (l *countingLoader) LoadChapters(ctx context.Context) ([]domain.Chapter, error) {
	l.chapterLoads++
	return l.StaticCatalog.LoadChapters(ctx)
}

func (l *countingLoader) LoadQuestions(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error) {
	l.questionLoads++
	return l.StaticCatalog.LoadQuestions(ctx, chapterID, difficulty)
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	l.pointLoads++
	return l.StaticCatalog.LoadQuestion(ctx, questionID)
}

func newTestFixture(t *testing.T) (*miniredis.Miniredis, *redis.Client, *countingLoader) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	loader := &countingLoader{StaticCatalog: memory.NewStaticCatalog(
		[]domain.Chapter{{ChapterID: 1, Name: "Algorithms"}},
		[]domain.Question{
			{QuestionID: 1, ChapterID: 1, Text: "q1", CorrectOption: "A", Difficulty: 1},
			{QuestionID: 2, ChapterID: 1, Text: "q2", CorrectOption: "B", Difficulty: 1},
		},
	)}
	return mr, client, loader
}

func TestCatalogCacheWritesThroughToRedis(t *testing.T) {
	ctx := context.Background()
	mr, client, loader := newTestFixture(t)
	cache := NewCatalogCache(client, loader, time.Minute)

	for i := 0; i < 3; i++ {
		chapters, err := cache.Chapters(ctx)
		if err != nil {
			t.Fatalf("chapters: %v", err)
		}
		if len(chapters) != 1 || chapters[0].Name != "Algorithms" {
			t.Fatalf("unexpected chapters %+v", chapters)
		}
	}
	if loader.chapterLoads != 1 {
		t.Fatalf("expected one backing load, got %d", loader.chapterLoads)
	}
	if !mr.Exists("catalog:chapters") {
		t.Fatalf("expected catalog:chapters key in redis")
	}
}

func TestCatalogCacheQuestionKey(t *testing.T) {
	ctx := context.Background()
	mr, client, loader := newTestFixture(t)
	cache := NewCatalogCache(client, loader, time.Minute)

	for i := 0; i < 3; i++ {
		questions, err := cache.QuestionsByDifficulty(ctx, 1, 1)
		if err != nil {
			t.Fatalf("questions: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(questions))
		}
	}
	if loader.questionLoads != 1 {
		t.Fatalf("expected one backing load, got %d", loader.questionLoads)
	}
	if !mr.Exists("catalog:ch:1:d:1") {
		t.Fatalf("expected question list key in redis")
	}
}

func TestCatalogCacheReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client, loader := newTestFixture(t)
	cache := NewCatalogCache(client, loader, time.Minute)

	if _, err := cache.QuestionsByDifficulty(ctx, 1, 1); err != nil {
		t.Fatalf("questions: %v", err)
	}
	// Miniredis applies TTLs only on FastForward.
	mr.FastForward(2 * time.Minute)
	if _, err := cache.QuestionsByDifficulty(ctx, 1, 1); err != nil {
		t.Fatalf("questions after expiry: %v", err)
	}
	if loader.questionLoads != 2 {
		t.Fatalf("expected reload after expiry, got %d loads", loader.questionLoads)
	}
}

func TestCatalogCacheSingleQuestion(t *testing.T) {
	ctx := context.Background()
	mr, client, loader := newTestFixture(t)
	cache := NewCatalogCache(client, loader, time.Minute)

	for i := 0; i < 2; i++ {
		q, err := cache.Question(ctx, 2)
		if err != nil {
			t.Fatalf("question: %v", err)
		}
		if q.Text != "q2" {
			t.Fatalf("unexpected question %+v", q)
		}
	}
	if loader.pointLoads != 1 {
		t.Fatalf("expected one backing load, got %d", loader.pointLoads)
	}
	if !mr.Exists("catalog:q:2") {
		t.Fatalf("expected point-read key in redis")
	}
}
