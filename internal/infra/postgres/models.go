package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"adaptive-quiz-engine/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	UserID              int64     `bun:"user_id,pk"`
	Username            string    `bun:"username,notnull"`
	TotalPoints         int       `bun:"total_points,notnull,default:0"`
	TotalQuestions      int       `bun:"total_questions,notnull,default:0"`
	CorrectAnswers      int       `bun:"correct_answers,notnull,default:0"`
	AverageResponseTime float64   `bun:"average_response_time,notnull,default:0"`
	CurrentRank         string    `bun:"current_rank,notnull"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		UserID:              r.UserID,
		Username:            r.Username,
		TotalPoints:         r.TotalPoints,
		TotalQuestions:      r.TotalQuestions,
		CorrectAnswers:      r.CorrectAnswers,
		AverageResponseTime: r.AverageResponseTime,
		CurrentRank:         r.CurrentRank,
		CreatedAt:           r.CreatedAt,
	}
}

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts"`

	AttemptID    int64     `bun:"attempt_id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	ChapterID    int64     `bun:"chapter_id,notnull"`
	QuestionID   int64     `bun:"question_id,notnull"`
	UserAnswer   string    `bun:"user_answer,notnull"`
	IsCorrect    bool      `bun:"is_correct,notnull"`
	ResponseTime float64   `bun:"response_time,notnull"`
	Difficulty   int       `bun:"difficulty,notnull"`
	PointsEarned int       `bun:"points_earned,notnull"`
	AttemptedAt  time.Time `bun:"attempted_at,nullzero,notnull,default:current_timestamp"`
}

type historyRow struct {
	bun.BaseModel `bun:"table:user_question_history"`

	UserID        int64     `bun:"user_id,pk"`
	QuestionID    int64     `bun:"question_id,pk"`
	LastAttempted time.Time `bun:"last_attempted,notnull"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:active_sessions"`

	SessionID         string    `bun:"session_id,pk"`
	UserID            int64     `bun:"user_id,notnull"`
	ChapterID         int64     `bun:"chapter_id,notnull"`
	CurrentQuestion   int       `bun:"current_question,notnull,default:0"`
	CurrentQuestionID int64     `bun:"current_question_id,notnull"`
	CurrentDifficulty int       `bun:"current_difficulty,notnull,default:1"`
	TotalQuestions    int       `bun:"total_questions,notnull,default:10"`
	Score             int       `bun:"score,notnull,default:0"`
	CorrectStreak     int       `bun:"correct_streak,notnull,default:0"`
	Completed         bool      `bun:"completed,notnull,default:false"`
	QuestionsL1       int       `bun:"questions_l1,notnull,default:0"`
	QuestionsL2       int       `bun:"questions_l2,notnull,default:0"`
	QuestionsL3       int       `bun:"questions_l3,notnull,default:0"`
	CorrectL1         int       `bun:"correct_l1,notnull,default:0"`
	CorrectL2         int       `bun:"correct_l2,notnull,default:0"`
	CorrectL3         int       `bun:"correct_l3,notnull,default:0"`
	ResponseTimes     []float64 `bun:"response_times,array"`
	StartedAt         time.Time `bun:"started_at,nullzero,notnull,default:current_timestamp"`
}

func sessionToRow(s domain.QuizSession) sessionRow {
	return sessionRow{
		SessionID:         s.SessionID,
		UserID:            s.UserID,
		ChapterID:         s.ChapterID,
		CurrentQuestion:   s.CurrentQuestion,
		CurrentQuestionID: s.CurrentQuestionID,
		CurrentDifficulty: s.CurrentDifficulty,
		TotalQuestions:    s.TotalQuestions,
		Score:             s.Score,
		CorrectStreak:     s.CorrectStreak,
		Completed:         s.Completed,
		QuestionsL1:       s.QuestionsByDifficulty[1],
		QuestionsL2:       s.QuestionsByDifficulty[2],
		QuestionsL3:       s.QuestionsByDifficulty[3],
		CorrectL1:         s.CorrectByDifficulty[1],
		CorrectL2:         s.CorrectByDifficulty[2],
		CorrectL3:         s.CorrectByDifficulty[3],
		ResponseTimes:     s.ResponseTimes,
		StartedAt:         s.StartedAt,
	}
}

func (r sessionRow) toDomain() domain.QuizSession {
	return domain.QuizSession{
		SessionID:             r.SessionID,
		UserID:                r.UserID,
		ChapterID:             r.ChapterID,
		CurrentQuestion:       r.CurrentQuestion,
		CurrentQuestionID:     r.CurrentQuestionID,
		CurrentDifficulty:     r.CurrentDifficulty,
		TotalQuestions:        r.TotalQuestions,
		Score:                 r.Score,
		CorrectStreak:         r.CorrectStreak,
		Completed:             r.Completed,
		QuestionsByDifficulty: [4]int{0, r.QuestionsL1, r.QuestionsL2, r.QuestionsL3},
		CorrectByDifficulty:   [4]int{0, r.CorrectL1, r.CorrectL2, r.CorrectL3},
		ResponseTimes:         r.ResponseTimes,
		StartedAt:             r.StartedAt,
	}
}
