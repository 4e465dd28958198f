package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"adaptive-quiz-engine/internal/domain"
)

// Selector picks the next question for a user, preferring questions the user
// has never seen and falling back to the least-recently-seen one. Selection
// among equally eligible candidates is uniform-random.
type Selector struct {
	catalog CatalogRepository
	history HistoryRepository
	// freshness is the window inside which a prior attempt counts as "seen".
	// Zero means any prior attempt counts, however old.
	freshness time.Duration
	clock     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(catalog CatalogRepository, history HistoryRepository, freshness time.Duration) *Selector {
	return &Selector{
		catalog:   catalog,
		history:   history,
		freshness: freshness,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectQuestion returns one eligible question for the chapter at the given
// difficulty (0 = any). It fails with domain.ErrNoEligibleQuestion only when
// the chapter has no questions at that difficulty; callers must treat that as
// session-ending, not retryable.
func (s *Selector) SelectQuestion(ctx context.Context, chapterID int64, difficulty int, userID int64) (domain.Question, error) {
	candidates, err := s.catalog.QuestionsByDifficulty(ctx, chapterID, difficulty)
	if err != nil {
		return domain.Question{}, err
	}
	if len(candidates) == 0 {
		return domain.Question{}, domain.ErrNoEligibleQuestion
	}

	seen, err := s.history.LastAttempted(ctx, userID)
	if err != nil {
		return domain.Question{}, err
	}

	now := s.clock()
	unseen := make([]domain.Question, 0, len(candidates))
	for _, q := range candidates {
		last, ok := seen[q.QuestionID]
		if !ok {
			unseen = append(unseen, q)
			continue
		}
		if s.freshness > 0 && now.Sub(last) > s.freshness {
			unseen = append(unseen, q)
		}
	}
	if len(unseen) > 0 {
		return unseen[s.intn(len(unseen))], nil
	}

	// Everything was seen recently; reuse the least-recently-seen question
	// rather than failing the session.
	oldest := candidates[0]
	oldestAt := seen[oldest.QuestionID]
	for _, q := range candidates[1:] {
		if at := seen[q.QuestionID]; at.Before(oldestAt) {
			oldest, oldestAt = q, at
		}
	}
	return oldest, nil
}

// intn guards the shared rand source; selection may run concurrently across users.
func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
