package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"adaptive-quiz-engine/internal/app"
	"adaptive-quiz-engine/internal/domain"
	"adaptive-quiz-engine/internal/infra/memory"
)

func testCatalog() *memory.StaticCatalog {
	chapters := []domain.Chapter{{ChapterID: 1, Name: "Networking"}}
	questions := []domain.Question{
		{QuestionID: 11, ChapterID: 1, Text: "q11", CorrectOption: "A", Difficulty: 1},
		{QuestionID: 12, ChapterID: 1, Text: "q12", CorrectOption: "B", Difficulty: 1},
		{QuestionID: 13, ChapterID: 1, Text: "q13", CorrectOption: "C", Difficulty: 1},
		{QuestionID: 21, ChapterID: 1, Text: "q21", CorrectOption: "D", Difficulty: 2},
	}
	return memory.NewStaticCatalog(chapters, questions)
}

func TestSelectPrefersUnseenQuestions(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	store := memory.NewStore(nil)
	selector := app.NewSelector(catalog, store, 0)

	if err := store.EnsureUser(ctx, 1, "Alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	// Mark two of the three difficulty-1 questions as seen.
	for _, qid := range []int64{11, 12} {
		if _, err := store.RecordAttempt(ctx, domain.Attempt{UserID: 1, ChapterID: 1, QuestionID: qid, UserAnswer: "A"}); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		q, err := selector.SelectQuestion(ctx, 1, 1, 1)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if q.QuestionID != 13 {
			t.Fatalf("expected the unseen question 13, got %d", q.QuestionID)
		}
	}
}

func TestSelectFallsBackToLeastRecentlySeen(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	store := memory.NewStore(nil)
	selector := app.NewSelector(catalog, store, 0)

	if err := store.EnsureUser(ctx, 1, "Alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	// Seen order: 12 (oldest), 13, 11 (newest).
	for i, qid := range []int64{12, 13, 11} {
		at := base.Add(time.Duration(i) * time.Minute)
		if _, err := store.RecordAttempt(ctx, domain.Attempt{UserID: 1, ChapterID: 1, QuestionID: qid, UserAnswer: "A", AttemptedAt: at}); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	q, err := selector.SelectQuestion(ctx, 1, 1, 1)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if q.QuestionID != 12 {
		t.Fatalf("expected least-recently-seen question 12, got %d", q.QuestionID)
	}
}

func TestSelectNotFoundWhenDifficultyEmpty(t *testing.T) {
	ctx := context.Background()
	selector := app.NewSelector(testCatalog(), memory.NewStore(nil), 0)

	if _, err := selector.SelectQuestion(ctx, 1, 3, 1); !errors.Is(err, domain.ErrNoEligibleQuestion) {
		t.Fatalf("expected no eligible question for empty difficulty, got %v", err)
	}
}

func TestSelectAnyDifficulty(t *testing.T) {
	ctx := context.Background()
	selector := app.NewSelector(testCatalog(), memory.NewStore(nil), 0)

	q, err := selector.SelectQuestion(ctx, 1, 0, 1)
	if err != nil {
		t.Fatalf("select any: %v", err)
	}
	if q.ChapterID != 1 {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestSelectFreshnessWindowExpiresSeenMarks(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	store := memory.NewStore(nil)
	// Attempts older than an hour no longer count as seen.
	selector := app.NewSelector(catalog, store, time.Hour)

	if err := store.EnsureUser(ctx, 1, "Alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	for _, qid := range []int64{11, 12} {
		if _, err := store.RecordAttempt(ctx, domain.Attempt{UserID: 1, ChapterID: 1, QuestionID: qid, UserAnswer: "A", AttemptedAt: stale}); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}
	if _, err := store.RecordAttempt(ctx, domain.Attempt{UserID: 1, ChapterID: 1, QuestionID: 13, UserAnswer: "A"}); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	// 11 and 12 aged out of the window; 13 was just seen.
	for i := 0; i < 10; i++ {
		q, err := selector.SelectQuestion(ctx, 1, 1, 1)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if q.QuestionID == 13 {
			t.Fatalf("recently seen question 13 should be excluded")
		}
	}
}
