package domain

import "time"

// GameRecord is the archived outcome of a finished game.
type GameRecord struct {
	RoomID    string    `json:"roomId"`
	Rounds    int       `json:"rounds"`
	Standings Standings `json:"standings"`
	EndedAt   time.Time `json:"endedAt"`
}

// NewGameRecord summarises a finished room.
func NewGameRecord(state RoomState, standings Standings) GameRecord {
	return GameRecord{
		RoomID:    state.RoomID,
		Rounds:    len(state.Rounds),
		Standings: standings,
		EndedAt:   state.UpdatedAt,
	}
}
