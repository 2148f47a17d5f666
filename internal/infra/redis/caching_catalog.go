package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
)

// CachingCatalog caches whole quizzes in Redis and falls back to the backing
// catalog on a miss:
//
//	SET quiz:{quizID} {quiz json} EX ttl
//
// Cache failures are never fatal; the backing catalog stays authoritative.
type CachingCatalog struct {
	client  *redis.Client
	backing app.QuizCatalog
	ttl     time.Duration
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
}

func NewCachingCatalog(client *redis.Client, backing app.QuizCatalog, ttl time.Duration) *CachingCatalog {
	return &CachingCatalog{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachingCatalog) ListAvailable(ctx context.Context) ([]domain.QuizSummary, error) {
	return c.backing.ListAvailable(ctx)
}

func (c *CachingCatalog) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := c.backing.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.fill(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *CachingCatalog) Create(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	created, err := c.backing.Create(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	c.fill(ctx, created)
	return created, nil
}

func (c *CachingCatalog) Delete(ctx context.Context, quizID string) error {
	_ = c.client.Del(ctx, c.key(quizID)).Err()
	return c.backing.Delete(ctx, quizID)
}

func (c *CachingCatalog) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *CachingCatalog) fill(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	// best-effort write
	_ = c.client.Set(ctx, c.key(quiz.ID), raw, c.ttlWithJitter()).Err()
}

func (c *CachingCatalog) key(quizID string) string {
	return "quiz:" + quizID
}

func (c *CachingCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
