package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"red-herring-service/internal/domain"
)

// QuestionLoader reads question decks from the questions table.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, deck string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT question, answer FROM questions WHERE deck=$1 ORDER BY id`, deck)
	if err != nil {
		return nil, fmt.Errorf("load deck %s: %w", deck, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.Question, &q.Answer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load deck %s: %w", deck, err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrDeckNotFound
	}
	return questions, nil
}
