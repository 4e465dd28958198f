package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"adaptive-quiz-engine/internal/domain"
	"github.com/google/uuid"
)

// SessionManager owns the Idle -> Active -> Completed lifecycle of the single
// quiz session each user may have in flight. It treats the recorder's result
// as the sole input driving streak and difficulty transitions.
type SessionManager struct {
	sessions SessionRepository
	users    UserRepository
	catalog  CatalogRepository
	selector *Selector
	recorder *Recorder
	policy   Policy
	clock    func() time.Time
	newID    func() string
}

func NewSessionManager(sessions SessionRepository, users UserRepository, catalog CatalogRepository, selector *Selector, recorder *Recorder, policy Policy) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		users:    users,
		catalog:  catalog,
		selector: selector,
		recorder: recorder,
		policy:   policy,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// StartResult pairs the fresh session with its first question.
type StartResult struct {
	Session  domain.QuizSession `json:"session"`
	Question domain.Question    `json:"question"`
}

// Start creates a session at question 0 and picks the first question,
// preferring difficulty 1 and falling back to any level the chapter has.
// A user with an unfinished session gets ErrSessionAlreadyActive; a leftover
// completed or stale session is swept away first.
func (m *SessionManager) Start(ctx context.Context, userID int64, username string, chapterID int64, totalQuestions int) (StartResult, error) {
	now := m.clock()
	if m.policy.SessionMaxAge > 0 {
		if n, err := m.sessions.DeleteStaleSessions(ctx, now.Add(-m.policy.SessionMaxAge)); err == nil && n > 0 {
			log.Printf("purged %d stale quiz sessions", n)
		}
	}

	if existing, err := m.sessions.SessionByUser(ctx, userID); err == nil {
		if !existing.Completed {
			return StartResult{}, domain.ErrSessionAlreadyActive
		}
		if err := m.sessions.DeleteSession(ctx, existing.SessionID); err != nil {
			return StartResult{}, err
		}
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return StartResult{}, err
	}

	if err := m.users.EnsureUser(ctx, userID, username); err != nil {
		return StartResult{}, err
	}
	if _, err := m.catalog.Chapter(ctx, chapterID); err != nil {
		return StartResult{}, err
	}

	if totalQuestions <= 0 {
		totalQuestions = m.policy.DefaultQuestions
	}

	question, err := m.selector.SelectQuestion(ctx, chapterID, 1, userID)
	if errors.Is(err, domain.ErrNoEligibleQuestion) {
		// The chapter has no easy questions; open at whatever level it has.
		question, err = m.selector.SelectQuestion(ctx, chapterID, 0, userID)
	}
	if err != nil {
		return StartResult{}, err
	}

	session := domain.QuizSession{
		SessionID:         m.newID(),
		UserID:            userID,
		ChapterID:         chapterID,
		CurrentQuestion:   0,
		CurrentQuestionID: question.QuestionID,
		CurrentDifficulty: question.Difficulty,
		TotalQuestions:    totalQuestions,
		StartedAt:         now,
	}
	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return StartResult{}, err
	}
	return StartResult{Session: session, Question: question}, nil
}

// Answer grades the session's current question, records the attempt through
// the recorder, advances streak/difficulty/score, and either serves the next
// question or finalizes the session.
func (m *SessionManager) Answer(ctx context.Context, userID int64, answer string, responseTime float64) (domain.AnswerOutcome, error) {
	session, err := m.sessions.SessionByUser(ctx, userID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if session.Completed {
		return domain.AnswerOutcome{}, domain.ErrSessionCompleted
	}

	question, err := m.catalog.Question(ctx, session.CurrentQuestionID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	normalized, err := domain.ValidateAttemptInput(answer, question.Difficulty, responseTime)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	isCorrect := normalized == strings.ToUpper(question.CorrectOption)
	points := m.policy.Points(question.Difficulty, isCorrect)

	result, err := m.recorder.Record(ctx, userID, session.ChapterID, question.QuestionID,
		normalized, isCorrect, responseTime, question.Difficulty, points)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	session.CurrentQuestion++
	session.QuestionsByDifficulty[question.Difficulty]++
	session.ResponseTimes = append(session.ResponseTimes, responseTime)
	if result.IsCorrect {
		session.Score += result.PointsEarned
		session.CorrectStreak++
		session.CorrectByDifficulty[question.Difficulty]++
	} else {
		session.CorrectStreak = 0
	}
	session.CurrentDifficulty = m.policy.NextDifficulty(session.CurrentDifficulty, session.CorrectStreak, result.IsCorrect)

	outcome := domain.AnswerOutcome{
		IsCorrect:      result.IsCorrect,
		CorrectOption:  question.CorrectOption,
		Explanation:    question.Explanation,
		PointsEarned:   result.PointsEarned,
		CurrentScore:   session.Score,
		QuestionNumber: session.CurrentQuestion,
		TotalQuestions: session.TotalQuestions,
		Streak:         session.CorrectStreak,
	}

	if session.CurrentQuestion >= session.TotalQuestions {
		return m.finalize(ctx, session, outcome)
	}

	next, err := m.selector.SelectQuestion(ctx, session.ChapterID, session.CurrentDifficulty, userID)
	if errors.Is(err, domain.ErrNoEligibleQuestion) {
		// The current level is exhausted; try any difficulty before giving up.
		next, err = m.selector.SelectQuestion(ctx, session.ChapterID, 0, userID)
	}
	if errors.Is(err, domain.ErrNoEligibleQuestion) {
		// Nothing left to ask anywhere in the chapter: the session ends here.
		return m.finalize(ctx, session, outcome)
	}
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	session.CurrentQuestionID = next.QuestionID
	if err := m.sessions.UpdateSession(ctx, session); err != nil {
		return domain.AnswerOutcome{}, err
	}
	outcome.NextQuestion = &next
	return outcome, nil
}

// End force-finishes the user's active session and returns its final stats.
func (m *SessionManager) End(ctx context.Context, userID int64) (domain.SessionStats, error) {
	session, err := m.sessions.SessionByUser(ctx, userID)
	if err != nil {
		return domain.SessionStats{}, err
	}
	if session.Completed {
		return domain.SessionStats{}, domain.ErrSessionCompleted
	}
	stats := m.finalStats(session)
	if err := m.sessions.DeleteSession(ctx, session.SessionID); err != nil {
		return domain.SessionStats{}, err
	}
	return stats, nil
}

// finalize marks the session completed and archives it until the next start.
// Completed sessions are terminal: further answers get ErrSessionCompleted.
func (m *SessionManager) finalize(ctx context.Context, session domain.QuizSession, outcome domain.AnswerOutcome) (domain.AnswerOutcome, error) {
	session.Completed = true
	if err := m.sessions.UpdateSession(ctx, session); err != nil {
		return domain.AnswerOutcome{}, err
	}
	stats := m.finalStats(session)
	outcome.Completed = true
	outcome.FinalStats = &stats
	return outcome, nil
}

func (m *SessionManager) finalStats(session domain.QuizSession) domain.SessionStats {
	answered := session.CurrentQuestion
	correct := 0
	for _, n := range session.CorrectByDifficulty {
		correct += n
	}
	avg := 0.0
	if len(session.ResponseTimes) > 0 {
		sum := 0.0
		for _, t := range session.ResponseTimes {
			sum += t
		}
		avg = sum / float64(len(session.ResponseTimes))
	}
	bonus := m.policy.TimeBonus(avg, answered)
	return domain.SessionStats{
		TotalQuestions:   answered,
		CorrectAnswers:   correct,
		Accuracy:         domain.AccuracyPercent(correct, answered),
		FinalScore:       session.Score + bonus,
		TimeBonus:        bonus,
		AvgResponseTime:  avg,
		QuestionsByLevel: session.QuestionsByDifficulty,
		DurationSeconds:  m.clock().Sub(session.StartedAt).Seconds(),
	}
}
