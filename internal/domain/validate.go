package domain

import "strings"

// ValidateAnswerOption checks a submitted answer letter and returns its
// normalized (uppercase) form. Validation runs in the service process before
// any persistence call, never inside the store.
func ValidateAnswerOption(answer string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(answer))
	switch normalized {
	case "A", "B", "C", "D":
		return normalized, nil
	}
	return "", ErrInvalidAnswerOption
}

// ValidateDifficulty checks that a difficulty level is within 1-3.
func ValidateDifficulty(difficulty int) error {
	if difficulty < 1 || difficulty > 3 {
		return ErrInvalidDifficulty
	}
	return nil
}

// ValidateResponseTime checks that a response time is within [0, 3600] seconds.
// Both bounds are inclusive.
func ValidateResponseTime(seconds float64) error {
	if seconds < 0 || seconds > 3600 {
		return ErrInvalidResponseTime
	}
	return nil
}

// ValidateAttemptInput applies all attempt-recording validation rules and
// returns the normalized answer. It fails fast on the first violation so no
// partial write can ever follow bad input.
func ValidateAttemptInput(answer string, difficulty int, responseTime float64) (string, error) {
	if err := ValidateDifficulty(difficulty); err != nil {
		return "", err
	}
	normalized, err := ValidateAnswerOption(answer)
	if err != nil {
		return "", err
	}
	if err := ValidateResponseTime(responseTime); err != nil {
		return "", err
	}
	return normalized, nil
}

// ClampLeaderboardLimit bounds a requested leaderboard size. Oversized
// requests are clamped, never rejected.
func ClampLeaderboardLimit(limit int) int {
	const max = 100
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}
