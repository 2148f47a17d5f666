package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
)

// CachingCatalog caches quizzes from a backing catalog with TTL to avoid
// repeated DB hits. Quizzes are immutable, so only deletes need to evict.
type CachingCatalog struct {
	backing app.QuizCatalog
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCachingCatalog(backing app.QuizCatalog, ttl time.Duration) *CachingCatalog {
	return &CachingCatalog{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
	}
}

func (c *CachingCatalog) ListAvailable(ctx context.Context) ([]domain.QuizSummary, error) {
	return c.backing.ListAvailable(ctx)
}

func (c *CachingCatalog) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if quiz, ok := c.lookup(quizID); ok {
			return quiz, nil
		}

		quiz, err := c.backing.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.store(quiz)
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
	c.store(created)
	return created, nil
}

func (c *CachingCatalog) Delete(ctx context.Context, quizID string) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
	return c.backing.Delete(ctx, quizID)
}

func (c *CachingCatalog) lookup(quizID string) (domain.Quiz, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		return entry.quiz, true
	}
	return domain.Quiz{}, false
}

func (c *CachingCatalog) store(quiz domain.Quiz) {
	expires := c.clock().Add(c.ttlWithJitter())
	c.mu.Lock()
	c.cache[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: expires}
	c.mu.Unlock()
}

func (c *CachingCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
