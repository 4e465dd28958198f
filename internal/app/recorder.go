package app

import (
	"context"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// Recorder validates and durably records one answer. The store performs the
// append + history upsert + aggregate update as a single atomic unit; the
// recorder's job is to reject bad input before any write can happen.
type Recorder struct {
	attempts AttemptRepository
	clock    func() time.Time
}

func NewRecorder(attempts AttemptRepository) *Recorder {
	return &Recorder{attempts: attempts, clock: time.Now}
}

// Record validates the attempt input, persists it, and returns the stored
// result. The answer is normalized to uppercase before storage. No partial
// write survives a validation failure or an aborted transaction.
func (r *Recorder) Record(ctx context.Context, userID, chapterID, questionID int64, userAnswer string, isCorrect bool, responseTime float64, difficulty, pointsEarned int) (domain.AttemptResult, error) {
	normalized, err := domain.ValidateAttemptInput(userAnswer, difficulty, responseTime)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	attempt := domain.Attempt{
		UserID:       userID,
		ChapterID:    chapterID,
		QuestionID:   questionID,
		UserAnswer:   normalized,
		IsCorrect:    isCorrect,
		ResponseTime: responseTime,
		Difficulty:   difficulty,
		PointsEarned: pointsEarned,
		AttemptedAt:  r.clock(),
	}
	attemptID, err := r.attempts.RecordAttempt(ctx, attempt)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	return domain.AttemptResult{
		AttemptID:    attemptID,
		IsCorrect:    isCorrect,
		PointsEarned: pointsEarned,
		UserAnswer:   normalized,
		ResponseTime: responseTime,
	}, nil
}
