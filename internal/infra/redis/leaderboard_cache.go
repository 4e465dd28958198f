package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"adaptive-quiz-engine/internal/app"
	"adaptive-quiz-engine/internal/domain"
)

// LeaderboardCache snapshots leaderboard responses in Redis for a short TTL.
// Standings move only when attempts land, so a few seconds of staleness saves
// repeated aggregate scans under read-heavy traffic.
type LeaderboardCache struct {
	client *redis.Client
	next   app.LeaderboardProvider
	ttl    time.Duration
	sf     singleflight.Group
}

func NewLeaderboardCache(client *redis.Client, next app.LeaderboardProvider, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, next: next, ttl: ttl}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context, timeframe domain.Timeframe, limit int) ([]domain.LeaderboardRow, error) {
	limit = domain.ClampLeaderboardLimit(limit)
	key := fmt.Sprintf("leaderboard:%s:%d", timeframe, limit)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var rows []domain.LeaderboardRow
		if err := json.Unmarshal(raw, &rows); err == nil {
			return rows, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var rows []domain.LeaderboardRow
			if err := json.Unmarshal(raw, &rows); err == nil {
				return rows, nil
			}
		}
		rows, err := c.next.Leaderboard(ctx, timeframe, limit)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(rows); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardRow), nil
}
