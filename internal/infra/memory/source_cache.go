package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kamass93/quiz-bot/internal/domain"
	"github.com/kamass93/quiz-bot/internal/quiz"
)

// CachedSource wraps a question source with a TTL cache so the workbook is
// not re-read on every navigation step. The state machine stays oblivious:
// it keeps calling the source fresh, the decorator absorbs the reads.
type CachedSource struct {
	inner quiz.QuestionSource
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu         sync.RWMutex
	categories cachedCategories
	questions  map[string]cachedQuestions
}

type cachedCategories struct {
	values    []string
	expiresAt time.Time
}

type cachedQuestions struct {
	values    []domain.Question
	expiresAt time.Time
}

func NewCachedSource(inner quiz.QuestionSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner:     inner,
		ttl:       ttl,
		clock:     time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		questions: make(map[string]cachedQuestions),
	}
}

func (c *CachedSource) Categories(ctx context.Context) ([]string, error) {
	now := c.clock()

	c.mu.RLock()
	if len(c.categories.values) > 0 && c.categories.expiresAt.After(now) {
		values := c.categories.values
		c.mu.RUnlock()
		return values, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("categories", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if len(c.categories.values) > 0 && c.categories.expiresAt.After(now) {
			values := c.categories.values
			c.mu.RUnlock()
			return values, nil
		}
		c.mu.RUnlock()

		values, err := c.inner.Categories(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.categories = cachedCategories{values: values, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *CachedSource) QuestionsFor(ctx context.Context, category string) ([]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.questions[category]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.values, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("questions:"+category, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.questions[category]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.values, nil
		}
		c.mu.RUnlock()

		values, err := c.inner.QuestionsFor(ctx, category)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.questions[category] = cachedQuestions{values: values, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
