package app

import (
	"context"

	"adaptive-quiz-engine/internal/domain"
)

// StatsService serves the read-only profile views built on recorded attempts
// and user aggregates.
type StatsService struct {
	users    UserRepository
	attempts AttemptRepository
	ladder   []domain.RankTier
}

func NewStatsService(users UserRepository, attempts AttemptRepository, ladder []domain.RankTier) *StatsService {
	return &StatsService{users: users, attempts: attempts, ladder: ladder}
}

// UserStats returns the user's aggregate row.
func (s *StatsService) UserStats(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.User(ctx, userID)
}

// ChapterPerformance lists the user's weakest chapters first; chapters with
// fewer than three attempts are omitted.
func (s *StatsService) ChapterPerformance(ctx context.Context, userID int64) ([]domain.ChapterPerformance, error) {
	return s.attempts.ChapterPerformance(ctx, userID)
}

// RankProgress describes where the user sits on the points ladder.
type RankProgress struct {
	CurrentRank  string `json:"currentRank"`
	TotalPoints  int    `json:"totalPoints"`
	NextRank     string `json:"nextRank,omitempty"`
	PointsToNext int    `json:"pointsToNext,omitempty"`
}

// RankProgress computes ladder position from the user's total points.
func (s *StatsService) RankProgress(ctx context.Context, userID int64) (RankProgress, error) {
	user, err := s.users.User(ctx, userID)
	if err != nil {
		return RankProgress{}, err
	}
	progress := RankProgress{
		CurrentRank: domain.RankForPoints(s.ladder, user.TotalPoints),
		TotalPoints: user.TotalPoints,
	}
	if next, remaining, ok := domain.NextRank(s.ladder, user.TotalPoints); ok {
		progress.NextRank = next.Name
		progress.PointsToNext = remaining
	}
	return progress, nil
}
