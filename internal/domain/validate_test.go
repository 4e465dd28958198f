package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateAnswerOption(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"a", "A", nil},
		{"A", "A", nil},
		{"d", "D", nil},
		{" b ", "B", nil},
		{"E", "", ErrInvalidAnswerOption},
		{"", "", ErrInvalidAnswerOption},
		{"AB", "", ErrInvalidAnswerOption},
	}
	for _, tc := range cases {
		got, err := ValidateAnswerOption(tc.in)
		if !errors.Is(err, tc.err) {
			t.Fatalf("ValidateAnswerOption(%q) err = %v, want %v", tc.in, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("ValidateAnswerOption(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateDifficultyBounds(t *testing.T) {
	for _, d := range []int{1, 2, 3} {
		if err := ValidateDifficulty(d); err != nil {
			t.Fatalf("difficulty %d should be valid: %v", d, err)
		}
	}
	for _, d := range []int{0, 4, -1} {
		if err := ValidateDifficulty(d); !errors.Is(err, ErrInvalidDifficulty) {
			t.Fatalf("difficulty %d should be rejected, got %v", d, err)
		}
	}
}

func TestValidateResponseTimeBounds(t *testing.T) {
	for _, s := range []float64{0, 3600, 5.5} {
		if err := ValidateResponseTime(s); err != nil {
			t.Fatalf("response time %v should be valid: %v", s, err)
		}
	}
	for _, s := range []float64{-0.0001, 3600.0001} {
		if err := ValidateResponseTime(s); !errors.Is(err, ErrInvalidResponseTime) {
			t.Fatalf("response time %v should be rejected, got %v", s, err)
		}
	}
}

func TestValidateAttemptInputFailsFast(t *testing.T) {
	if _, err := ValidateAttemptInput("E", 0, -1); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("expected difficulty error first, got %v", err)
	}
	if _, err := ValidateAttemptInput("E", 2, -1); !errors.Is(err, ErrInvalidAnswerOption) {
		t.Fatalf("expected answer error second, got %v", err)
	}
	if _, err := ValidateAttemptInput("c", 2, -1); !errors.Is(err, ErrInvalidResponseTime) {
		t.Fatalf("expected response time error last, got %v", err)
	}
	normalized, err := ValidateAttemptInput("c", 2, 12)
	if err != nil || normalized != "C" {
		t.Fatalf("expected normalized C, got %q err=%v", normalized, err)
	}
}

func TestClampLeaderboardLimit(t *testing.T) {
	if got := ClampLeaderboardLimit(500); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := ClampLeaderboardLimit(7); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := ClampLeaderboardLimit(0); got != 10 {
		t.Fatalf("expected default 10, got %d", got)
	}
}

func TestTimeframeWindows(t *testing.T) {
	now := time.Date(2025, 8, 30, 15, 45, 12, 0, time.UTC)

	daily := TimeframeDaily.WindowStart(now)
	if !daily.Equal(time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily window start = %v", daily)
	}
	monthly := TimeframeMonthly.WindowStart(now)
	if !monthly.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly window start = %v", monthly)
	}
	if !TimeframeAllTime.WindowStart(now).IsZero() {
		t.Fatalf("all_time window should be unbounded")
	}
	if Timeframe("weekly").Valid() {
		t.Fatalf("weekly should not validate")
	}
}

func TestAccuracyPercentRounds(t *testing.T) {
	if got := AccuracyPercent(1, 3); got != 33.33 {
		t.Fatalf("expected 33.33, got %v", got)
	}
	if got := AccuracyPercent(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty, got %v", got)
	}
	if got := AccuracyPercent(2, 2); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestRankLadder(t *testing.T) {
	if got := RankForPoints(nil, 0); got != "QA Pleasant" {
		t.Fatalf("zero points rank = %q", got)
	}
	if got := RankForPoints(nil, 150); got != "QA Baron" {
		t.Fatalf("150 points rank = %q", got)
	}
	if got := RankForPoints(nil, 5000); got != "QA Grand Duke" {
		t.Fatalf("5000 points rank = %q", got)
	}

	next, remaining, ok := NextRank(nil, 150)
	if !ok || next.Name != "QA Viscount" || remaining != 150 {
		t.Fatalf("next rank from 150 = %v %d %v", next, remaining, ok)
	}
	if _, _, ok := NextRank(nil, 10000); ok {
		t.Fatalf("top rank should have no next")
	}
}
