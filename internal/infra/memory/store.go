package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// Store is the in-memory implementation of the engine's persistence: users,
// attempts, question history, and active sessions. It backs the unit tests
// and the no-database demo mode.
//
// Attempts are append-only; nothing in the exposed surface mutates or removes
// one. The per-user aggregate update is serialized through a striped per-user
// mutex so concurrent recordings for one user never interleave the
// read-modify-write of the incremental mean, while unrelated users proceed
// in parallel.
type Store struct {
	ladder []domain.RankTier
	clock  func() time.Time

	mu        sync.RWMutex
	users     map[int64]domain.User
	attempts  []domain.Attempt
	history   map[int64]map[int64]time.Time
	sessions  map[int64]domain.QuizSession
	nextID    int64
	userLocks map[int64]*sync.Mutex

	// chapterNames is optional seed data for ChapterPerformance output.
	chapterNames map[int64]string
}

func NewStore(ladder []domain.RankTier) *Store {
	return &Store{
		ladder:    ladder,
		clock:     time.Now,
		users:     make(map[int64]domain.User),
		history:   make(map[int64]map[int64]time.Time),
		sessions:  make(map[int64]domain.QuizSession),
		nextID:    1,
		userLocks: make(map[int64]*sync.Mutex),
	}
}

func (s *Store) lockUser(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// --- app.UserRepository ---

func (s *Store) EnsureUser(_ context.Context, userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		if username != "" {
			u.Username = username
			s.users[userID] = u
		}
		return nil
	}
	s.users[userID] = domain.User{
		UserID:      userID,
		Username:    username,
		CurrentRank: domain.RankForPoints(s.ladder, 0),
		CreatedAt:   s.clock(),
	}
	return nil
}

func (s *Store) User(_ context.Context, userID int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) TopByPoints(_ context.Context, limit int) ([]domain.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.LeaderboardRow, 0, len(s.users))
	for _, u := range s.users {
		if u.TotalQuestions == 0 {
			continue
		}
		rows = append(rows, domain.LeaderboardRow{
			Username:          u.Username,
			Points:            u.TotalPoints,
			QuestionsAnswered: u.TotalQuestions,
			Accuracy:          domain.AccuracyPercent(u.CorrectAnswers, u.TotalQuestions),
		})
	}
	sortRows(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// --- app.AttemptRepository ---

func (s *Store) RecordAttempt(_ context.Context, attempt domain.Attempt) (int64, error) {
	// Same-user recordings serialize on the user lock; the global lock is
	// held only for the map accesses, so other users interleave between the
	// read and write phases.
	userLock := s.lockUser(attempt.UserID)
	userLock.Lock()
	defer userLock.Unlock()

	s.mu.RLock()
	user, ok := s.users[attempt.UserID]
	s.mu.RUnlock()
	if !ok {
		return 0, domain.ErrUserNotFound
	}

	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = s.clock()
	}

	// Exact incremental mean from the pre-update count. The user lock keeps
	// this read-modify-write exclusive for the user across both phases.
	before := user.TotalQuestions
	user.AverageResponseTime = (user.AverageResponseTime*float64(before) + attempt.ResponseTime) / float64(before+1)
	user.TotalQuestions = before + 1
	user.TotalPoints += attempt.PointsEarned
	if attempt.IsCorrect {
		user.CorrectAnswers++
	}
	user.CurrentRank = domain.RankForPoints(s.ladder, user.TotalPoints)

	s.mu.Lock()
	attempt.AttemptID = s.nextID
	s.nextID++
	s.attempts = append(s.attempts, attempt)
	if s.history[attempt.UserID] == nil {
		s.history[attempt.UserID] = make(map[int64]time.Time)
	}
	s.history[attempt.UserID][attempt.QuestionID] = attempt.AttemptedAt
	s.users[attempt.UserID] = user
	s.mu.Unlock()

	return attempt.AttemptID, nil
}

func (s *Store) AggregateSince(_ context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		points   int
		answered int
		correct  int
	}
	byUser := make(map[int64]*agg)
	for _, a := range s.attempts {
		if a.AttemptedAt.Before(since) {
			continue
		}
		entry := byUser[a.UserID]
		if entry == nil {
			entry = &agg{}
			byUser[a.UserID] = entry
		}
		entry.points += a.PointsEarned
		entry.answered++
		if a.IsCorrect {
			entry.correct++
		}
	}

	rows := make([]domain.LeaderboardRow, 0, len(byUser))
	for userID, entry := range byUser {
		rows = append(rows, domain.LeaderboardRow{
			Username:          s.users[userID].Username,
			Points:            entry.points,
			QuestionsAnswered: entry.answered,
			Accuracy:          domain.AccuracyPercent(entry.correct, entry.answered),
		})
	}
	sortRows(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) ChapterPerformance(ctx context.Context, userID int64) ([]domain.ChapterPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		chapterID int64
		attempts  int
		correct   int
		totalTime float64
	}
	byChapter := make(map[int64]*agg)
	for _, a := range s.attempts {
		if a.UserID != userID {
			continue
		}
		entry := byChapter[a.ChapterID]
		if entry == nil {
			entry = &agg{chapterID: a.ChapterID}
			byChapter[a.ChapterID] = entry
		}
		entry.attempts++
		entry.totalTime += a.ResponseTime
		if a.IsCorrect {
			entry.correct++
		}
	}

	var out []domain.ChapterPerformance
	for _, entry := range byChapter {
		if entry.attempts < 3 {
			continue
		}
		out = append(out, domain.ChapterPerformance{
			ChapterName:     s.chapterName(ctx, entry.chapterID),
			TotalAttempts:   entry.attempts,
			CorrectAnswers:  entry.correct,
			AvgResponseTime: entry.totalTime / float64(entry.attempts),
			Accuracy:        domain.AccuracyPercent(entry.correct, entry.attempts),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].AvgResponseTime > out[j].AvgResponseTime
	})
	return out, nil
}

// chapterName resolution is best-effort; the memory store has no catalog of
// its own, so it falls back to an empty name when unset.
func (s *Store) chapterName(_ context.Context, chapterID int64) string {
	if s.chapterNames == nil {
		return ""
	}
	return s.chapterNames[chapterID]
}

// SetChapterNames seeds name resolution for ChapterPerformance.
func (s *Store) SetChapterNames(names map[int64]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chapterNames = names
}

// --- app.HistoryRepository ---

func (s *Store) LastAttempted(_ context.Context, userID int64) (map[int64]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]time.Time, len(s.history[userID]))
	for questionID, at := range s.history[userID] {
		out[questionID] = at
	}
	return out, nil
}

// --- app.SessionRepository ---

func (s *Store) CreateSession(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.UserID]; ok {
		return domain.ErrSessionAlreadyActive
	}
	s.sessions[session.UserID] = session
	return nil
}

func (s *Store) SessionByUser(_ context.Context, userID int64) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[userID]; ok {
		return session, nil
	}
	return domain.QuizSession{}, domain.ErrSessionNotFound
}

func (s *Store) UpdateSession(_ context.Context, session domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[session.UserID]
	if !ok || existing.SessionID != session.SessionID {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.UserID] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, session := range s.sessions {
		if session.SessionID == sessionID {
			delete(s.sessions, userID)
			return nil
		}
	}
	return nil
}

func (s *Store) DeleteStaleSessions(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, session := range s.sessions {
		if session.StartedAt.Before(before) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed, nil
}

// AttemptCount reports how many attempts have been recorded, for tests that
// assert the log is append-only.
func (s *Store) AttemptCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

// AttemptByID returns a copy of one recorded attempt.
func (s *Store) AttemptByID(attemptID int64) (domain.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.AttemptID == attemptID {
			return a, true
		}
	}
	return domain.Attempt{}, false
}

func sortRows(rows []domain.LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Accuracy > rows[j].Accuracy
	})
}
