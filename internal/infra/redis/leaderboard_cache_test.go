package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"adaptive-quiz-engine/internal/domain"
)

type countingProvider struct {
	calls int
	rows  []domain.LeaderboardRow
}

func (p *countingProvider) Leaderboard(_ context.Context, _ domain.Timeframe, _ int) ([]domain.LeaderboardRow, error) {
	p.calls++
	return p.rows, nil
}

func TestLeaderboardCacheSnapshotsResponses(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	provider := &countingProvider{rows: []domain.LeaderboardRow{
		{Username: "Alice", Points: 12, QuestionsAnswered: 6, Accuracy: 83.33},
	}}
	cache := NewLeaderboardCache(client, provider, 30*time.Second)

	for i := 0; i < 4; i++ {
		rows, err := cache.Leaderboard(ctx, domain.TimeframeDaily, 10)
		if err != nil {
			t.Fatalf("leaderboard: %v", err)
		}
		if len(rows) != 1 || rows[0].Username != "Alice" {
			t.Fatalf("unexpected rows %+v", rows)
		}
	}
	if provider.calls != 1 {
		t.Fatalf("expected one aggregation, got %d", provider.calls)
	}
	if !mr.Exists("leaderboard:daily:10") {
		t.Fatalf("expected snapshot key in redis")
	}

	mr.FastForward(time.Minute)
	if _, err := cache.Leaderboard(ctx, domain.TimeframeDaily, 10); err != nil {
		t.Fatalf("leaderboard after expiry: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected re-aggregation after TTL, got %d calls", provider.calls)
	}
}

func TestLeaderboardCacheKeysByWindowAndLimit(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	provider := &countingProvider{}
	cache := NewLeaderboardCache(client, provider, 30*time.Second)

	if _, err := cache.Leaderboard(ctx, domain.TimeframeDaily, 10); err != nil {
		t.Fatalf("daily: %v", err)
	}
	if _, err := cache.Leaderboard(ctx, domain.TimeframeMonthly, 10); err != nil {
		t.Fatalf("monthly: %v", err)
	}
	// An oversized limit clamps to the same key as the cap.
	if _, err := cache.Leaderboard(ctx, domain.TimeframeDaily, 500); err != nil {
		t.Fatalf("clamped: %v", err)
	}
	if !mr.Exists("leaderboard:daily:100") {
		t.Fatalf("expected clamped key leaderboard:daily:100")
	}
	if provider.calls != 3 {
		t.Fatalf("expected three aggregations, got %d", provider.calls)
	}
}
