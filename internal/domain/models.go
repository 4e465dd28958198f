package domain

import (
	"math"
	"time"
)

// User carries the aggregate statistics mutated by attempt recording.
type User struct {
	UserID              int64     `json:"userId"`
	Username            string    `json:"username"`
	TotalPoints         int       `json:"totalPoints"`
	TotalQuestions      int       `json:"totalQuestions"`
	CorrectAnswers      int       `json:"correctAnswers"`
	AverageResponseTime float64   `json:"averageResponseTime"`
	CurrentRank         string    `json:"currentRank"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Chapter is a named grouping of questions, maintained by administration.
type Chapter struct {
	ChapterID   int64     `json:"chapterId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question is a four-option MCQ with exactly one correct option (A-D).
type Question struct {
	QuestionID    int64  `json:"questionId"`
	ChapterID     int64  `json:"chapterId"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption string `json:"correctOption"`
	Difficulty    int    `json:"difficulty"`
	Explanation   string `json:"explanation"`
}

// Attempt is the append-only record of one answered question.
// Once written it is never mutated or deleted.
type Attempt struct {
	AttemptID    int64     `json:"attemptId"`
	UserID       int64     `json:"userId"`
	ChapterID    int64     `json:"chapterId"`
	QuestionID   int64     `json:"questionId"`
	UserAnswer   string    `json:"userAnswer"`
	IsCorrect    bool      `json:"isCorrect"`
	ResponseTime float64   `json:"responseTime"`
	Difficulty   int       `json:"difficulty"`
	PointsEarned int       `json:"pointsEarned"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

// QuestionHistory marks when a user last saw a question. One row per
// (user, question) pair; selection reads it to avoid repeats.
type QuestionHistory struct {
	UserID        int64     `json:"userId"`
	QuestionID    int64     `json:"questionId"`
	LastAttempted time.Time `json:"lastAttempted"`
}

// QuizSession is the live traversal of a fixed-length question sequence.
// At most one active session exists per user; it is removed on completion.
type QuizSession struct {
	SessionID         string    `json:"sessionId"`
	UserID            int64     `json:"userId"`
	ChapterID         int64     `json:"chapterId"`
	CurrentQuestion   int       `json:"currentQuestion"`
	CurrentQuestionID int64     `json:"currentQuestionId"`
	CurrentDifficulty int       `json:"currentDifficulty"`
	TotalQuestions    int       `json:"totalQuestions"`
	Score             int       `json:"score"`
	CorrectStreak     int       `json:"correctStreak"`
	Completed         bool      `json:"completed"`
	StartedAt         time.Time `json:"startedAt"`

	// Per-difficulty counters and response times feed the adaptive policy
	// and the completion stats; they travel with the session record.
	QuestionsByDifficulty [4]int    `json:"questionsByDifficulty"`
	CorrectByDifficulty   [4]int    `json:"correctByDifficulty"`
	ResponseTimes         []float64 `json:"responseTimes"`
}

// AttemptResult is what attempt recording hands back to the session layer.
type AttemptResult struct {
	AttemptID    int64   `json:"attemptId"`
	IsCorrect    bool    `json:"isCorrect"`
	PointsEarned int     `json:"pointsEarned"`
	UserAnswer   string  `json:"userAnswer"`
	ResponseTime float64 `json:"responseTime"`
}

// AnswerOutcome is the session-level view of one answered question.
type AnswerOutcome struct {
	IsCorrect      bool          `json:"isCorrect"`
	CorrectOption  string        `json:"correctOption"`
	Explanation    string        `json:"explanation"`
	PointsEarned   int           `json:"pointsEarned"`
	CurrentScore   int           `json:"currentScore"`
	QuestionNumber int           `json:"questionNumber"`
	TotalQuestions int           `json:"totalQuestions"`
	Streak         int           `json:"streak"`
	Completed      bool          `json:"completed"`
	NextQuestion   *Question     `json:"nextQuestion,omitempty"`
	FinalStats     *SessionStats `json:"finalStats,omitempty"`
}

// SessionStats summarizes a finished session.
type SessionStats struct {
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectAnswers   int     `json:"correctAnswers"`
	Accuracy         float64 `json:"accuracy"`
	FinalScore       int     `json:"finalScore"`
	TimeBonus        int     `json:"timeBonus"`
	AvgResponseTime  float64 `json:"avgResponseTime"`
	QuestionsByLevel [4]int  `json:"questionsByLevel"`
	DurationSeconds  float64 `json:"durationSeconds"`
}

// LeaderboardRow is one ranked standing.
type LeaderboardRow struct {
	Username          string  `json:"username"`
	Points            int     `json:"points"`
	QuestionsAnswered int     `json:"questionsAnswered"`
	Accuracy          float64 `json:"accuracy"`
}

// ChapterPerformance aggregates a user's attempts within one chapter.
type ChapterPerformance struct {
	ChapterName     string  `json:"chapterName"`
	TotalAttempts   int     `json:"totalAttempts"`
	CorrectAnswers  int     `json:"correctAnswers"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	Accuracy        float64 `json:"accuracy"`
}

// AccuracyPercent computes correct/total as a percentage rounded to two
// decimal places. Zero total yields 0.
func AccuracyPercent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}

// Timeframe selects a leaderboard aggregation window.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "daily"
	TimeframeMonthly Timeframe = "monthly"
	TimeframeAllTime Timeframe = "all_time"
)

// WindowStart returns the inclusive lower bound for attempt timestamps in
// this timeframe, relative to now. The zero time means unbounded (all_time).
func (t Timeframe) WindowStart(now time.Time) time.Time {
	switch t {
	case TimeframeDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case TimeframeMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Time{}
	}
}

// Valid reports whether the timeframe is one of the supported windows.
func (t Timeframe) Valid() bool {
	switch t {
	case TimeframeDaily, TimeframeMonthly, TimeframeAllTime:
		return true
	}
	return false
}
