package domain

import (
	"fmt"
	"sort"
	"strings"
)

// StandingsEntry is one row of the scoreboard.
type StandingsEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

// Standings is the ordered scoreboard of a room.
type Standings struct {
	RoomID  string           `json:"roomId"`
	Entries []StandingsEntry `json:"entries"`
	Winners []string         `json:"winners"`
	Summary string           `json:"summary"`
}

// ComputeStandings ranks players by score. Equal scores share a rank and keep join order.
func ComputeStandings(state RoomState) Standings {
	entries := make([]StandingsEntry, 0, len(state.Players))
	for _, p := range state.Players {
		entries = append(entries, StandingsEntry{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	out := Standings{RoomID: state.RoomID, Entries: entries, Winners: []string{}}
	if len(entries) == 0 {
		return out
	}

	var names []string
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
		if entries[i].Score == entries[0].Score {
			out.Winners = append(out.Winners, entries[i].PlayerID)
			names = append(names, entries[i].Name)
		}
	}

	top := entries[0].Score
	if len(names) == 1 {
		out.Summary = fmt.Sprintf("%s is the winner with %d points!", names[0], top)
	} else {
		out.Summary = fmt.Sprintf("%s tie for the win with %d points!", strings.Join(names, " & "), top)
	}
	return out
}
