package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kamass93/quiz-bot/internal/domain"
	"github.com/kamass93/quiz-bot/internal/quiz"
)

// CachedSource caches the question bank in Redis as JSON blobs with a TTL:
//
//	SET quiz:source:categories          ["general", ...]
//	SET quiz:source:questions:{category} [{...}, ...]
//
// Redis failures degrade to reading the underlying source directly; the
// cache is an optimization, never a dependency.
type CachedSource struct {
	client *redis.Client
	inner  quiz.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCachedSource(client *redis.Client, inner quiz.QuestionSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedSource) Categories(ctx context.Context) ([]string, error) {
	var cached []string
	if c.readJSON(ctx, categoriesKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := c.sf.Do(categoriesKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		var cached []string
		if c.readJSON(ctx, categoriesKey, &cached) && len(cached) > 0 {
			return cached, nil
		}

		values, err := c.inner.Categories(ctx)
		if err != nil {
			return nil, err
		}
		c.writeJSON(ctx, categoriesKey, values)
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (c *CachedSource) QuestionsFor(ctx context.Context, category string) ([]domain.Question, error) {
	key := questionsKey(category)

	var cached []domain.Question
	if c.readJSON(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		var cached []domain.Question
		if c.readJSON(ctx, key, &cached) && len(cached) > 0 {
			return cached, nil
		}

		values, err := c.inner.QuestionsFor(ctx, category)
		if err != nil {
			return nil, err
		}
		c.writeJSON(ctx, key, values)
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CachedSource) readJSON(ctx context.Context, key string, dst interface{}) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis source cache: get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("redis source cache: decode %s: %v", key, err)
		return false
	}
	return true
}

// writeJSON is best-effort; a failed cache fill only costs a re-read later.
func (c *CachedSource) writeJSON(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("redis source cache: encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
		log.Printf("redis source cache: set %s: %v", key, err)
	}
}

const categoriesKey = "quiz:source:categories"

func questionsKey(category string) string {
	return "quiz:source:questions:" + category
}

func (c *CachedSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
