package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"red-herring-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Deck     string `bun:"deck,notnull"`
	Question string `bun:"question,notnull"`
	Answer   string `bun:"answer,notnull"`
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			classic := domain.ClassicQuestions()
			rows := make([]questionRow, 0, len(classic))
			for _, q := range classic {
				rows = append(rows, questionRow{Deck: domain.DefaultDeck, Question: q.Question, Answer: q.Answer})
			}
			_, err := db.NewInsert().Model(&rows).Exec(ctx)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.NewDelete().Model((*questionRow)(nil)).Where("deck = ?", domain.DefaultDeck).Exec(ctx)
			return err
		},
	)
}
