package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"red-herring-service/internal/domain"
)

type gameModel struct {
	bun.BaseModel `bun:"table:games"`

	ID        int64            `bun:"id,pk,autoincrement"`
	RoomID    string           `bun:"room_id,notnull"`
	Rounds    int              `bun:"rounds,notnull"`
	Standings domain.Standings `bun:"standings,type:jsonb,notnull"`
	EndedAt   time.Time        `bun:"ended_at,notnull"`
}

// HistoryStore archives finished games in the games table.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Record(ctx context.Context, state domain.RoomState, standings domain.Standings) error {
	rec := domain.NewGameRecord(state, standings)
	row := &gameModel{
		RoomID:    rec.RoomID,
		Rounds:    rec.Rounds,
		Standings: rec.Standings,
		EndedAt:   rec.EndedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("record game %s: %w", rec.RoomID, err)
	}
	return nil
}

// Recent returns up to limit games, newest first. limit <= 0 means 20.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []gameModel
	err := s.db.NewSelect().Model(&rows).Order("ended_at DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]domain.GameRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.GameRecord{
			RoomID:    row.RoomID,
			Rounds:    row.Rounds,
			Standings: row.Standings,
			EndedAt:   row.EndedAt,
		})
	}
	return out, nil
}
