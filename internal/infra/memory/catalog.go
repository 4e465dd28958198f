package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"adaptive-quiz-engine/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches catalog content from a backing store (e.g. Postgres).
type CatalogLoader interface {
	LoadChapters(ctx context.Context) ([]domain.Chapter, error)
	// LoadQuestions lists a chapter's questions; difficulty 0 means any.
	LoadQuestions(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error)
	LoadQuestion(ctx context.Context, questionID int64) (domain.Question, error)
}

// StaticCatalog is a loader and repository backed by in-memory maps, useful
// for tests and the no-database demo mode.
type StaticCatalog struct {
	chapters  map[int64]domain.Chapter
	questions map[int64]domain.Question
}

func NewStaticCatalog(chapters []domain.Chapter, questions []domain.Question) *StaticCatalog {
	c := &StaticCatalog{
		chapters:  make(map[int64]domain.Chapter, len(chapters)),
		questions: make(map[int64]domain.Question, len(questions)),
	}
	for _, ch := range chapters {
		c.chapters[ch.ChapterID] = ch
	}
	for _, q := range questions {
		c.questions[q.QuestionID] = q
	}
	return c
}

func (c *StaticCatalog) LoadChapters(_ context.Context) ([]domain.Chapter, error) {
	out := make([]domain.Chapter, 0, len(c.chapters))
	for _, ch := range c.chapters {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *StaticCatalog) LoadQuestions(_ context.Context, chapterID int64, difficulty int) ([]domain.Question, error) {
	if _, ok := c.chapters[chapterID]; !ok {
		return nil, domain.ErrChapterNotFound
	}
	var out []domain.Question
	for _, q := range c.questions {
		if q.ChapterID != chapterID {
			continue
		}
		if difficulty != 0 && q.Difficulty != difficulty {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func (c *StaticCatalog) LoadQuestion(_ context.Context, questionID int64) (domain.Question, error) {
	if q, ok := c.questions[questionID]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// Repository passthroughs so a StaticCatalog can serve app.CatalogRepository
// directly, without a cache in front.

func (c *StaticCatalog) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	return c.LoadChapters(ctx)
}

func (c *StaticCatalog) Chapter(_ context.Context, chapterID int64) (domain.Chapter, error) {
	if ch, ok := c.chapters[chapterID]; ok {
		return ch, nil
	}
	return domain.Chapter{}, domain.ErrChapterNotFound
}

func (c *StaticCatalog) QuestionsByDifficulty(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error) {
	return c.LoadQuestions(ctx, chapterID, difficulty)
}

func (c *StaticCatalog) Question(ctx context.Context, questionID int64) (domain.Question, error) {
	return c.LoadQuestion(ctx, questionID)
}

// ChapterNames returns id -> name, used to seed performance reports in
// memory-store mode.
func (c *StaticCatalog) ChapterNames() map[int64]string {
	names := make(map[int64]string, len(c.chapters))
	for id, ch := range c.chapters {
		names[id] = ch.Name
	}
	return names
}

// CatalogCache caches catalog reads with TTL to avoid repeated DB hits. The
// catalog is read-only from the engine's side, so slightly stale content is fine.
type CatalogCache struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu         sync.RWMutex
	chapters   []domain.Chapter
	chapterExp time.Time
	questions  map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewCatalogCache(loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		loader:    loader,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]cachedQuestions),
	}
}

func (c *CatalogCache) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	now := c.clock()
	c.mu.RLock()
	if c.chapters != nil && c.chapterExp.After(now) {
		defer c.mu.RUnlock()
		return c.chapters, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("chapters", func() (interface{}, error) {
		chapters, err := c.loader.LoadChapters(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.chapters = chapters
		c.chapterExp = c.clock().Add(c.ttlWithJitter())
		c.mu.Unlock()
		return chapters, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Chapter), nil
}

func (c *CatalogCache) Chapter(ctx context.Context, chapterID int64) (domain.Chapter, error) {
	chapters, err := c.Chapters(ctx)
	if err != nil {
		return domain.Chapter{}, err
	}
	for _, ch := range chapters {
		if ch.ChapterID == chapterID {
			return ch, nil
		}
	}
	return domain.Chapter{}, domain.ErrChapterNotFound
}

func (c *CatalogCache) QuestionsByDifficulty(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error) {
	key := fmt.Sprintf("c:%d:d:%d", chapterID, difficulty)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.questions[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.questions, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		if entry, ok := c.questions[key]; ok && entry.expiresAt.After(c.clock()) {
			c.mu.RUnlock()
			return entry.questions, nil
		}
		c.mu.RUnlock()

		questions, err := c.loader.LoadQuestions(ctx, chapterID, difficulty)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.questions[key] = cachedQuestions{
			questions: questions,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Question is served uncached; selection already works off the cached lists
// and single-question lookups are cheap point reads.
func (c *CatalogCache) Question(ctx context.Context, questionID int64) (domain.Question, error) {
	return c.loader.LoadQuestion(ctx, questionID)
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
