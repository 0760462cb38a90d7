package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"red-herring-service/internal/domain"
	"red-herring-service/internal/infra/memory"
)

// QuestionRepository caches decks in Redis and falls back to a loader on miss.
// Decks are stored as: SET questions:{deck} <json array>
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, deck string) ([]domain.Question, error) {
	if qs, ok := r.cached(ctx, deck); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(deck, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if qs, ok := r.cached(ctx, deck); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, deck)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, domain.ErrNoQuestions
		}

		raw, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, r.key(deck), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("deck", deck).Msg("cache question deck")
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	qs := result.([]domain.Question)
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (r *QuestionRepository) cached(ctx context.Context, deck string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(deck)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("deck", deck).Msg("read cached deck")
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (r *QuestionRepository) key(deck string) string {
	return "questions:" + deck
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
