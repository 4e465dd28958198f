package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"adaptive-quiz-engine/internal/domain"
)

// CatalogLoader fetches catalog content from the backing store on cache miss.
type CatalogLoader interface {
	LoadChapters(ctx context.Context) ([]domain.Chapter, error)
	LoadQuestions(ctx context.Context, chapterID int64, difficulty int) ([]domain.Question, error)
	LoadQuestion(ctx context.Context, questionID int64) (domain.Question, error)
}

// CatalogCache keeps catalog reads in Redis as JSON blobs with a jittered TTL
// and falls back to the loader on miss. The catalog is administration-owned
// and read-only here, so short staleness is acceptable.
//
// Keys:
//
//	catalog:chapters                 -> JSON array of chapters
//	catalog:ch:{chapterID}:d:{diff}  -> JSON array of questions
//	catalog:q:{questionID}           -> JSON question
type CatalogCache struct {
	client *redis.Client
	loader CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	key := "catalog:chapters"
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var chapters []domain.Chapter
		if err := json.Unmarshal(raw, &chapters); err == nil {
			return chapters, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var chapters []domain.Chapter
			if err := json.Unmarshal(raw, &chapters); err == nil {
				return chapters, nil
			}
		}
		chapters, err := c.loader.LoadChapters(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, chapters)
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
	key := fmt.Sprintf("catalog:ch:%d:d:%d", chapterID, difficulty)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err == nil {
			return questions, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var questions []domain.Question
			if err := json.Unmarshal(raw, &questions); err == nil {
				return questions, nil
			}
		}
		questions, err := c.loader.LoadQuestions(ctx, chapterID, difficulty)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CatalogCache) Question(ctx context.Context, questionID int64) (domain.Question, error) {
	key := fmt.Sprintf("catalog:q:%d", questionID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
	}
	q, err := c.loader.LoadQuestion(ctx, questionID)
	if err != nil {
		return domain.Question{}, err
	}
	c.set(ctx, key, q)
	return q, nil
}

// set is best-effort: a cache write failure never fails the read.
func (c *CatalogCache) set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
