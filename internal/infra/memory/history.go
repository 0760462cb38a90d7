package memory

import (
	"context"
	"sync"

	"red-herring-service/internal/domain"
)

// HistoryLog keeps archived games in process memory, newest last.
type HistoryLog struct {
	mu      sync.RWMutex
	records []domain.GameRecord
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

func (h *HistoryLog) Record(_ context.Context, state domain.RoomState, standings domain.Standings) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, domain.NewGameRecord(state, standings))
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *HistoryLog) Recent(_ context.Context, limit int) ([]domain.GameRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.GameRecord, 0, n)
	for i := len(h.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}
