package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"red-herring-service/internal/domain"
)

// QuestionLoader fetches a question deck from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, deck string) ([]domain.Question, error)
}

// QuestionRepository caches decks with TTL to avoid repeated loads.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedDeck
}

type cachedDeck struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedDeck),
	}
}

// GetQuestions returns a copy of the deck so callers may shuffle freely.
func (r *QuestionRepository) GetQuestions(ctx context.Context, deck string) ([]domain.Question, error) {
	if qs, ok := r.cached(deck, r.clock()); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(deck, func() (interface{}, error) {
		now := r.clock()
		if qs, ok := r.cached(deck, now); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, deck)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, domain.ErrNoQuestions
		}

		r.mu.Lock()
		r.cache[deck] = cachedDeck{
			questions: questions,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return copyQuestions(result.([]domain.Question)), nil
}

func (r *QuestionRepository) cached(deck string, now time.Time) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[deck]
	if !ok || !entry.expiresAt.After(now) {
		return nil, false
	}
	return copyQuestions(entry.questions), true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves decks from a map; the default deployment uses it
// with the built-in classic deck.
type StaticQuestionLoader struct {
	decks map[string][]domain.Question
}

func NewStaticQuestionLoader(decks map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{decks: decks}
}

// NewClassicLoader serves only the built-in deck.
func NewClassicLoader() *StaticQuestionLoader {
	return NewStaticQuestionLoader(map[string][]domain.Question{
		domain.DefaultDeck: domain.ClassicQuestions(),
	})
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, deck string) ([]domain.Question, error) {
	if qs, ok := l.decks[deck]; ok {
		return copyQuestions(qs), nil
	}
	return nil, domain.ErrDeckNotFound
}

func copyQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	copy(out, in)
	return out
}
