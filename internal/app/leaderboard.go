package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// LeaderboardProvider is the read contract the transport and the redis cache
// layer share.
type LeaderboardProvider interface {
	Leaderboard(ctx context.Context, timeframe domain.Timeframe, limit int) ([]domain.LeaderboardRow, error)
}

// LeaderboardAggregator computes ranked standings over a requested window.
// Daily and monthly windows aggregate attempt rows; all_time reads the
// precomputed user aggregates to avoid a full attempt scan.
type LeaderboardAggregator struct {
	attempts AttemptRepository
	users    UserRepository
	clock    func() time.Time
}

func NewLeaderboardAggregator(attempts AttemptRepository, users UserRepository) *LeaderboardAggregator {
	return &LeaderboardAggregator{attempts: attempts, users: users, clock: time.Now}
}

// Leaderboard returns at most 100 rows ordered by points descending, ties
// broken by accuracy descending. Oversized limits are clamped, never errors.
func (a *LeaderboardAggregator) Leaderboard(ctx context.Context, timeframe domain.Timeframe, limit int) ([]domain.LeaderboardRow, error) {
	if !timeframe.Valid() {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	limit = domain.ClampLeaderboardLimit(limit)

	var rows []domain.LeaderboardRow
	var err error
	switch timeframe {
	case domain.TimeframeAllTime:
		rows, err = a.users.TopByPoints(ctx, limit)
	default:
		since := timeframe.WindowStart(a.clock())
		rows, err = a.attempts.AggregateSince(ctx, since, limit)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Accuracy > rows[j].Accuracy
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
