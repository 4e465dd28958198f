package app

import (
	"math"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// Policy bundles the tunable scoring and progression parameters. Difficulty
// progression is monotone and clamped to [1,3]: streaks raise it, wrong
// answers lower it.
type Policy struct {
	// PointsByDifficulty maps difficulty 1-3 to points for a correct answer.
	// Index 0 is unused.
	PointsByDifficulty [4]int
	// RaiseStreak is how many consecutive correct answers trigger a
	// difficulty increase.
	RaiseStreak int
	// DefaultQuestions is the session length when the caller passes zero.
	DefaultQuestions int
	// TimeBonusCeiling caps the completion-time bonus.
	TimeBonusCeiling int
	// TimeBonusFastAvg is the average response time (seconds) under which
	// the completion bonus starts accruing.
	TimeBonusFastAvg float64
	// SessionMaxAge is how old an active session may get before start-time
	// cleanup purges it.
	SessionMaxAge time.Duration
	// Ladder is the points-to-rank ladder applied after each attempt.
	Ladder []domain.RankTier
}

// DefaultPolicy returns the production tuning.
func DefaultPolicy() Policy {
	return Policy{
		PointsByDifficulty: [4]int{0, 1, 2, 3},
		RaiseStreak:        3,
		DefaultQuestions:   10,
		TimeBonusCeiling:   50,
		TimeBonusFastAvg:   10,
		SessionMaxAge:      30 * time.Minute,
		Ladder:             domain.DefaultRankLadder,
	}
}

// Points returns the points earned for an answer at the given difficulty.
func (p Policy) Points(difficulty int, correct bool) int {
	if !correct || difficulty < 1 || difficulty > 3 {
		return 0
	}
	return p.PointsByDifficulty[difficulty]
}

// NextDifficulty computes the difficulty for the next question from the
// current level and the streak after the latest answer.
func (p Policy) NextDifficulty(current, streak int, correct bool) int {
	next := current
	if correct {
		if p.RaiseStreak > 0 && streak > 0 && streak%p.RaiseStreak == 0 {
			next = current + 1
		}
	} else {
		next = current - 1
	}
	if next < 1 {
		next = 1
	}
	if next > 3 {
		next = 3
	}
	return next
}

// TimeBonus converts a fast average response time into bonus points.
func (p Policy) TimeBonus(avgResponseTime float64, answered int) int {
	if answered == 0 || avgResponseTime >= p.TimeBonusFastAvg {
		return 0
	}
	bonus := int(math.Floor((p.TimeBonusFastAvg - avgResponseTime) * 5))
	if bonus > p.TimeBonusCeiling {
		bonus = p.TimeBonusCeiling
	}
	if bonus < 0 {
		bonus = 0
	}
	return bonus
}
