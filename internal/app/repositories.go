package app

import (
	"context"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// CatalogRepository serves read-only chapter and question content. The engine
// never writes the catalog; administration owns it.
type CatalogRepository interface {
	Chapters(ctx context.Context) ([]domain.Chapter, error)
	Chapter(ctx context.Context, chapterID int64) (domain.Chapter, error)
	// QuestionsByDifficulty lists a chapter's questions at one difficulty.
	// Difficulty 0 means any difficulty.
	QuestionsByDifficulty(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error)
	Question(ctx context.Context, questionID int64) (domain.Question, error)
}

// HistoryRepository reads per-user question history for anti-redundancy
// selection. Writes happen only inside attempt recording.
type HistoryRepository interface {
	// LastAttempted returns question ID -> last attempt time for the user.
	LastAttempted(ctx context.Context, userID int64) (map[int64]time.Time, error)
}

// AttemptRepository persists attempts and serves attempt-derived aggregates.
// RecordAttempt is the single atomic unit described by the scoring engine:
// append the attempt, upsert question history, and update the user's
// aggregate row (points, counts, exact incremental mean, rank) all-or-nothing,
// serialized per user.
type AttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) (int64, error)
	// AggregateSince ranks users by points over attempts at or after since.
	// Only users with at least one attempt in the window appear.
	AggregateSince(ctx context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error)
	// ChapterPerformance aggregates one user's attempts per chapter,
	// weakest chapters first, skipping chapters with fewer than three attempts.
	ChapterPerformance(ctx context.Context, userID int64) ([]domain.ChapterPerformance, error)
}

// UserRepository owns user identity rows and their precomputed aggregates.
type UserRepository interface {
	// EnsureUser creates the user on first interaction; existing rows keep
	// their aggregates and only refresh the display name.
	EnsureUser(ctx context.Context, userID int64, username string) error
	User(ctx context.Context, userID int64) (domain.User, error)
	// TopByPoints serves the all-time leaderboard straight from the
	// precomputed aggregate columns, skipping users with no answers.
	TopByPoints(ctx context.Context, limit int) ([]domain.LeaderboardRow, error)
}

// SessionRepository stores the single active quiz session per user.
type SessionRepository interface {
	// CreateSession fails with domain.ErrSessionAlreadyActive when the user
	// already owns a session row.
	CreateSession(ctx context.Context, session domain.QuizSession) error
	// SessionByUser fails with domain.ErrSessionNotFound when absent.
	SessionByUser(ctx context.Context, userID int64) (domain.QuizSession, error)
	UpdateSession(ctx context.Context, session domain.QuizSession) error
	DeleteSession(ctx context.Context, sessionID string) error
	// DeleteStaleSessions purges sessions started before the cutoff and
	// returns how many were removed.
	DeleteStaleSessions(ctx context.Context, before time.Time) (int, error)
}
