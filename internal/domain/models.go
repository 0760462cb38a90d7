package domain

import (
	"strings"
	"time"
)

const (
	// MinPlayers is the smallest table a game can start with.
	MinPlayers = 3
	// MaxPlayers caps how many players a room accepts.
	MaxPlayers = 8
	// RoomCodeLength is the length of generated room codes.
	RoomCodeLength = 6
)

// Player is a seat at the table. Role and answer flags are reset every round.
type Player struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Score         int       `json:"score"`
	IsAdmin       bool      `json:"isAdmin"`
	IsStoryteller bool      `json:"isStoryteller"`
	HasRedFish    bool      `json:"hasRedFish"`
	HasSubmitted  bool      `json:"hasSubmitted"`
	Answer        string    `json:"answer"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// ResetForRound clears every per-round flag.
func (p *Player) ResetForRound() {
	p.IsStoryteller = false
	p.HasRedFish = false
	p.HasSubmitted = false
	p.Answer = ""
}

// Submission is one player's answer for a round. IsGuessedCorrectly is nil until judged.
type Submission struct {
	PlayerID           string `json:"playerId"`
	Answer             string `json:"answer"`
	IsGuessedCorrectly *bool  `json:"isGuessedCorrectly,omitempty"`
}

// Judged reports whether the storyteller has recorded a verdict.
func (s Submission) Judged() bool {
	return s.IsGuessedCorrectly != nil
}

// Round is one question cycle.
type Round struct {
	Number        int          `json:"number"`
	Question      string       `json:"question"`
	CorrectAnswer string       `json:"correctAnswer"`
	StorytellerID string       `json:"storytellerId"`
	Submissions   []Submission `json:"submissions"`
	Points        int          `json:"points"`
}

// Question is one entry of a question deck.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RoomState is the authoritative state of a single room.
type RoomState struct {
	RoomID       string     `json:"roomId"`
	Version      int64      `json:"version"`
	Deck         string     `json:"deck,omitempty"`
	Players      []Player   `json:"players"`
	Status       Status     `json:"status"`
	Rounds       []Round    `json:"rounds"`
	CurrentRound int        `json:"currentRound"`
	Questions    []Question `json:"questions,omitempty"`
	// Sessions maps each secret session token to the player it was issued to.
	Sessions  map[string]string `json:"sessions,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewRoomState returns an empty lobby for roomID drawing from questions.
func NewRoomState(roomID, deck string, questions []Question, now time.Time) RoomState {
	pool := make([]Question, len(questions))
	copy(pool, questions)
	return RoomState{
		RoomID:    roomID,
		Deck:      deck,
		Players:   []Player{},
		Status:    StatusWaiting,
		Rounds:    []Round{},
		Questions: pool,
		Sessions:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s RoomState) Clone() RoomState {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	if out.Players == nil {
		out.Players = []Player{}
	}
	out.Questions = append([]Question(nil), s.Questions...)
	out.Sessions = make(map[string]string, len(s.Sessions))
	for token, id := range s.Sessions {
		out.Sessions[token] = id
	}
	out.Rounds = make([]Round, len(s.Rounds))
	for i, r := range s.Rounds {
		subs := make([]Submission, len(r.Submissions))
		for j, sub := range r.Submissions {
			if sub.IsGuessedCorrectly != nil {
				v := *sub.IsGuessedCorrectly
				sub.IsGuessedCorrectly = &v
			}
			subs[j] = sub
		}
		r.Submissions = subs
		out.Rounds[i] = r
	}
	return out
}

// ActiveRound returns the round being played, or nil outside of play.
func (s *RoomState) ActiveRound() *Round {
	if s.Status != StatusPlaying || s.CurrentRound < 0 || s.CurrentRound >= len(s.Rounds) {
		return nil
	}
	return &s.Rounds[s.CurrentRound]
}

// PlayerIndex returns the position of playerID in join order, or -1.
func (s *RoomState) PlayerIndex(playerID string) int {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// Player returns a pointer into s.Players, or nil when unknown.
func (s *RoomState) Player(playerID string) *Player {
	if i := s.PlayerIndex(playerID); i >= 0 {
		return &s.Players[i]
	}
	return nil
}

// PlayerByToken returns the player a session token was issued to, or nil.
func (s *RoomState) PlayerByToken(token string) *Player {
	if token == "" {
		return nil
	}
	id, ok := s.Sessions[token]
	if !ok {
		return nil
	}
	return s.Player(id)
}

// StorytellerIndex returns the index of the current storyteller, or -1.
func (s *RoomState) StorytellerIndex() int {
	for i := range s.Players {
		if s.Players[i].IsStoryteller {
			return i
		}
	}
	return -1
}

// NormalizeRoomCode makes user-typed codes comparable with generated ones.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
