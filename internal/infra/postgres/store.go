package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"adaptive-quiz-engine/internal/domain"
)

// Store implements the engine's persistence on Postgres through bun. Attempt
// recording runs as one transaction that locks the user's aggregate row, so
// concurrent recordings for the same user serialize on the row while other
// users proceed untouched.
type Store struct {
	db     *bun.DB
	ladder []domain.RankTier
}

func NewStore(db *bun.DB, ladder []domain.RankTier) *Store {
	return &Store{db: db, ladder: ladder}
}

// --- app.UserRepository ---

func (s *Store) EnsureUser(ctx context.Context, userID int64, username string) error {
	row := userRow{
		UserID:      userID,
		Username:    username,
		CurrentRank: domain.RankForPoints(s.ladder, 0),
	}
	insert := s.db.NewInsert().Model(&row)
	if username != "" {
		insert = insert.On("CONFLICT (user_id) DO UPDATE").Set("username = EXCLUDED.username")
	} else {
		insert = insert.On("CONFLICT (user_id) DO NOTHING")
	}
	if _, err := insert.Exec(ctx); err != nil {
		return storeErr("ensure user", err)
	}
	return nil
}

func (s *Store) User(ctx context.Context, userID int64) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, storeErr("load user", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TopByPoints(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	var rows []domain.LeaderboardRow
	err := s.db.NewSelect().
		TableExpr("users").
		ColumnExpr("username").
		ColumnExpr("total_points AS points").
		ColumnExpr("total_questions AS questions_answered").
		ColumnExpr("ROUND(correct_answers::numeric / total_questions * 100, 2) AS accuracy").
		Where("total_questions > 0").
		OrderExpr("total_points DESC, accuracy DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, storeErr("all-time leaderboard", err)
	}
	return rows, nil
}

// --- app.AttemptRepository ---

func (s *Store) RecordAttempt(ctx context.Context, attempt domain.Attempt) (int64, error) {
	var attemptID int64
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Row lock serializes the read-modify-write of the aggregates for
		// this user only.
		var user userRow
		err := tx.NewSelect().Model(&user).
			Where("user_id = ?", attempt.UserID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		row := attemptRow{
			UserID:       attempt.UserID,
			ChapterID:    attempt.ChapterID,
			QuestionID:   attempt.QuestionID,
			UserAnswer:   attempt.UserAnswer,
			IsCorrect:    attempt.IsCorrect,
			ResponseTime: attempt.ResponseTime,
			Difficulty:   attempt.Difficulty,
			PointsEarned: attempt.PointsEarned,
			AttemptedAt:  attempt.AttemptedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Returning("attempt_id").Exec(ctx); err != nil {
			return err
		}
		attemptID = row.AttemptID

		history := historyRow{
			UserID:        attempt.UserID,
			QuestionID:    attempt.QuestionID,
			LastAttempted: attempt.AttemptedAt,
		}
		if _, err := tx.NewInsert().Model(&history).
			On("CONFLICT (user_id, question_id) DO UPDATE").
			Set("last_attempted = EXCLUDED.last_attempted").
			Exec(ctx); err != nil {
			return err
		}

		before := user.TotalQuestions
		user.AverageResponseTime = (user.AverageResponseTime*float64(before) + attempt.ResponseTime) / float64(before+1)
		user.TotalQuestions = before + 1
		user.TotalPoints += attempt.PointsEarned
		if attempt.IsCorrect {
			user.CorrectAnswers++
		}
		user.CurrentRank = domain.RankForPoints(s.ladder, user.TotalPoints)

		_, err = tx.NewUpdate().Model(&user).
			Column("total_points", "total_questions", "correct_answers", "average_response_time", "current_rank").
			Where("user_id = ?", user.UserID).
			Exec(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return 0, err
		}
		switch pgCode(err) {
		case "40001", "40P01":
			return 0, domain.ErrConcurrentUpdate
		}
		return 0, storeErr("record attempt", err)
	}
	return attemptID, nil
}

func (s *Store) AggregateSince(ctx context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error) {
	var rows []domain.LeaderboardRow
	err := s.db.NewSelect().
		TableExpr("quiz_attempts AS qa").
		Join("JOIN users AS u ON u.user_id = qa.user_id").
		ColumnExpr("u.username").
		ColumnExpr("SUM(qa.points_earned) AS points").
		ColumnExpr("COUNT(*) AS questions_answered").
		ColumnExpr("ROUND(SUM(CASE WHEN qa.is_correct THEN 1 ELSE 0 END)::numeric / COUNT(*) * 100, 2) AS accuracy").
		Where("qa.attempted_at >= ?", since).
		GroupExpr("u.user_id, u.username").
		OrderExpr("points DESC, accuracy DESC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, storeErr("windowed leaderboard", err)
	}
	return rows, nil
}

func (s *Store) ChapterPerformance(ctx context.Context, userID int64) ([]domain.ChapterPerformance, error) {
	var rows []domain.ChapterPerformance
	err := s.db.NewSelect().
		TableExpr("quiz_attempts AS qa").
		Join("JOIN chapters AS c ON c.chapter_id = qa.chapter_id").
		ColumnExpr("c.name AS chapter_name").
		ColumnExpr("COUNT(*) AS total_attempts").
		ColumnExpr("SUM(CASE WHEN qa.is_correct THEN 1 ELSE 0 END) AS correct_answers").
		ColumnExpr("AVG(qa.response_time) AS avg_response_time").
		ColumnExpr("ROUND(SUM(CASE WHEN qa.is_correct THEN 1 ELSE 0 END)::numeric / COUNT(*) * 100, 2) AS accuracy").
		Where("qa.user_id = ?", userID).
		GroupExpr("qa.chapter_id, c.name").
		Having("COUNT(*) >= 3").
		OrderExpr("accuracy ASC, avg_response_time DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, storeErr("chapter performance", err)
	}
	return rows, nil
}

// --- app.HistoryRepository ---

func (s *Store) LastAttempted(ctx context.Context, userID int64) (map[int64]time.Time, error) {
	var rows []historyRow
	err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, storeErr("load question history", err)
	}
	out := make(map[int64]time.Time, len(rows))
	for _, r := range rows {
		out[r.QuestionID] = r.LastAttempted
	}
	return out, nil
}

// --- app.SessionRepository ---

func (s *Store) CreateSession(ctx context.Context, session domain.QuizSession) error {
	row := sessionToRow(session)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		// UNIQUE(user_id) is the one-active-session-per-user invariant.
		if pgCode(err) == "23505" {
			return domain.ErrSessionAlreadyActive
		}
		return storeErr("create session", err)
	}
	return nil
}

func (s *Store) SessionByUser(ctx context.Context, userID int64) (domain.QuizSession, error) {
	var row sessionRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, storeErr("load session", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateSession(ctx context.Context, session domain.QuizSession) error {
	row := sessionToRow(session)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return storeErr("update session", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().
		TableExpr("active_sessions").
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return storeErr("delete session", err)
	}
	return nil
}

func (s *Store) DeleteStaleSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.NewDelete().
		TableExpr("active_sessions").
		Where("started_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, storeErr("delete stale sessions", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// pgCode extracts the SQLSTATE from a pgdriver error, or "".
func pgCode(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

// storeErr wraps driver failures so callers can match domain.ErrStorageUnavailable
// without seeing internal detail.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}
