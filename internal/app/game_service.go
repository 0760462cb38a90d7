package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"red-herring-service/internal/domain"
)

const roomCodeAttempts = 16

// RoomRepository abstracts where room handles live (in-memory, Redis, etc).
type RoomRepository interface {
	// Insert registers a new room, failing with domain.ErrRoomExists on a code collision.
	Insert(ctx context.Context, room *Room) error
	// Get fails with domain.ErrRoomNotFound for unknown codes. Stores shared
	// between instances fail with domain.ErrRoomUnavailable when another
	// instance owns the room.
	Get(ctx context.Context, roomID string) (*Room, error)
	// Save persists a committed snapshot. In-memory stores may treat it as a no-op.
	Save(ctx context.Context, state domain.RoomState) error
	// DeleteIdle drops rooms whose last command is older than cutoff and returns them.
	DeleteIdle(ctx context.Context, cutoff time.Time) []*Room
}

// QuestionRepository loads question decks (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, deck string) ([]domain.Question, error)
}

// HistoryRecorder archives finished games.
type HistoryRecorder interface {
	Record(ctx context.Context, state domain.RoomState, standings domain.Standings) error
	Recent(ctx context.Context, limit int) ([]domain.GameRecord, error)
}

// GameService contains the game use cases. It resolves rooms, runs commands
// against them and persists the outcome.
type GameService struct {
	rooms     RoomRepository
	questions QuestionRepository
	history   HistoryRecorder
	deck      string
	newRoom   func(id, deck string, questions []domain.Question) *Room
	newCode   func() (string, error)
	newID     func() string
	newToken  func() string
	now       func() time.Time
}

// Seat is what JoinRoom hands the joining player. Token is the player's secret
// credential for every later call; Player.ID is public and only identifies.
type Seat struct {
	Player domain.Player `json:"player"`
	Token  string        `json:"token"`
}

func NewGameService(rooms RoomRepository, questions QuestionRepository, history HistoryRecorder, deck string) *GameService {
	if deck == "" {
		deck = domain.DefaultDeck
	}
	return &GameService{
		rooms:     rooms,
		questions: questions,
		history:   history,
		deck:      deck,
		newRoom:   NewRoom,
		newCode:   GenerateRoomCode,
		newID:     uuid.NewString,
		newToken:  uuid.NewString,
		now:       time.Now,
	}
}

// WithRoomFactory swaps how rooms are built; tests use it for seeded randomness.
func (s *GameService) WithRoomFactory(factory func(id, deck string, questions []domain.Question) *Room) *GameService {
	s.newRoom = factory
	return s
}

// WithClock swaps the clock used for idle expiry.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	s.now = now
	return s
}

// WithCodeGenerator swaps the room code source.
func (s *GameService) WithCodeGenerator(gen func() (string, error)) *GameService {
	s.newCode = gen
	return s
}

// CreateRoom opens a new lobby and returns its code.
func (s *GameService) CreateRoom(ctx context.Context) (string, []string, error) {
	questions, err := s.questions.GetQuestions(ctx, s.deck)
	if err != nil {
		return "", nil, err
	}
	if len(questions) == 0 {
		return "", nil, domain.ErrNoQuestions
	}

	for i := 0; i < roomCodeAttempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return "", nil, err
		}
		room := s.newRoom(code, s.deck, questions)
		err = s.rooms.Insert(ctx, room)
		if errors.Is(err, domain.ErrRoomExists) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		log.Info().Str("room", code).Str("deck", s.deck).Msg("room created")
		return code, []string{"Room created! Share the room code with your friends"}, nil
	}
	return "", nil, domain.ErrRoomCodeExhausted
}

// JoinRoom seats a new player. The seat's token is returned only here.
func (s *GameService) JoinRoom(ctx context.Context, roomID, name string) (Seat, []string, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return Seat{}, nil, err
	}
	token := s.newToken()
	player, state, notes, err := room.join(s.newID(), token, name)
	if err != nil {
		return Seat{}, nil, err
	}
	if err := s.persist(ctx, "join", player.ID, state); err != nil {
		return Seat{}, nil, err
	}
	return Seat{Player: player, Token: token}, notes, nil
}

// StartGame deals the first round. Admin only.
func (s *GameService) StartGame(ctx context.Context, roomID, playerID string) (domain.RoomState, []string, error) {
	return s.run(ctx, roomID, playerID, "start", func(room *Room) (domain.RoomState, []string, error) {
		return room.startGame(playerID)
	})
}

// SubmitAnswer records a non-storyteller's answer for the active round.
func (s *GameService) SubmitAnswer(ctx context.Context, roomID, playerID, answer string) (domain.RoomState, []string, error) {
	return s.run(ctx, roomID, playerID, "submit", func(room *Room) (domain.RoomState, []string, error) {
		return room.submitAnswer(playerID, answer)
	})
}

// GuessAnswer records the storyteller's verdict on targetID's submission.
func (s *GameService) GuessAnswer(ctx context.Context, roomID, playerID, targetID string, guessedIsRedFish bool) (domain.RoomState, []string, error) {
	return s.run(ctx, roomID, playerID, "guess", func(room *Room) (domain.RoomState, []string, error) {
		return room.guessAnswer(playerID, targetID, guessedIsRedFish)
	})
}

// EndGuessing settles the round, pays the storyteller and deals the next round.
func (s *GameService) EndGuessing(ctx context.Context, roomID, playerID string) (domain.RoomState, []string, error) {
	return s.run(ctx, roomID, playerID, "end_guessing", func(room *Room) (domain.RoomState, []string, error) {
		return room.endGuessing(playerID)
	})
}

// EndGame finishes the room for good and archives the final standings. Admin only.
func (s *GameService) EndGame(ctx context.Context, roomID, playerID string) (domain.RoomState, []string, error) {
	state, notes, err := s.run(ctx, roomID, playerID, "end_game", func(room *Room) (domain.RoomState, []string, error) {
		return room.endGame(playerID)
	})
	if err != nil {
		return state, nil, err
	}
	standings := domain.ComputeStandings(state)
	if s.history != nil {
		if err := s.history.Record(ctx, state, standings); err != nil {
			log.Error().Err(err).Str("room", state.RoomID).Msg("archive game")
		}
	}
	return state, append(notes, standings.Summary), nil
}

// GetState returns the full snapshot of a room.
func (s *GameService) GetState(ctx context.Context, roomID string) (domain.RoomState, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	return room.Snapshot(), nil
}

// Authenticate resolves a session token to the player holding it.
func (s *GameService) Authenticate(ctx context.Context, roomID, token string) (domain.Player, error) {
	state, err := s.GetState(ctx, roomID)
	if err != nil {
		return domain.Player{}, err
	}
	player := state.PlayerByToken(token)
	if player == nil {
		return domain.Player{}, domain.ErrNotAuthorized
	}
	return *player, nil
}

// ViewFor returns the room as the token holder may see it. An empty token
// gets the spectator view; an unknown one is rejected.
func (s *GameService) ViewFor(ctx context.Context, roomID, token string) (domain.RoomState, error) {
	state, err := s.GetState(ctx, roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	if token == "" {
		return state.ViewFor(""), nil
	}
	player := state.PlayerByToken(token)
	if player == nil {
		return domain.RoomState{}, domain.ErrNotAuthorized
	}
	return state.ViewFor(player.ID), nil
}

// GetPlayerView returns playerID's record, but only to the holder of that
// player's token.
func (s *GameService) GetPlayerView(ctx context.Context, roomID, token, playerID string) (domain.Player, error) {
	state, err := s.GetState(ctx, roomID)
	if err != nil {
		return domain.Player{}, err
	}
	player := state.Player(playerID)
	if player == nil {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	caller := state.PlayerByToken(token)
	if caller == nil || caller.ID != player.ID {
		return domain.Player{}, domain.ErrNotAuthorized
	}
	return *player, nil
}

// Standings returns the room's current scoreboard.
func (s *GameService) Standings(ctx context.Context, roomID string) (domain.Standings, error) {
	state, err := s.GetState(ctx, roomID)
	if err != nil {
		return domain.Standings{}, err
	}
	return domain.ComputeStandings(state), nil
}

// History lists recently archived games, newest first.
func (s *GameService) History(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	if s.history == nil {
		return []domain.GameRecord{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// Subscribe returns a channel of committed room snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(ctx context.Context, roomID string) (<-chan domain.RoomState, func(), error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}

// ExpireIdle drops rooms that have not accepted a command for maxIdle.
func (s *GameService) ExpireIdle(ctx context.Context, maxIdle time.Duration) int {
	dropped := s.rooms.DeleteIdle(ctx, s.now().Add(-maxIdle))
	for _, room := range dropped {
		room.Close()
		log.Info().Str("room", room.ID()).Msg("idle room expired")
	}
	return len(dropped)
}

func (s *GameService) room(ctx context.Context, roomID string) (*Room, error) {
	return s.rooms.Get(ctx, domain.NormalizeRoomCode(roomID))
}

func (s *GameService) run(ctx context.Context, roomID, playerID, command string, fn func(*Room) (domain.RoomState, []string, error)) (domain.RoomState, []string, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return domain.RoomState{}, nil, err
	}
	state, notes, err := fn(room)
	if err != nil {
		log.Debug().Err(err).Str("room", room.ID()).Str("player", playerID).Str("command", command).Msg("command rejected")
		return state, nil, err
	}
	if err := s.persist(ctx, command, playerID, state); err != nil {
		return state, nil, err
	}
	return state, notes, nil
}

// persist saves a committed snapshot. A failed save fails the command: the
// caller must not be told ok for a change the store did not keep.
func (s *GameService) persist(ctx context.Context, command, playerID string, state domain.RoomState) error {
	log.Debug().Str("room", state.RoomID).Str("player", playerID).Str("command", command).Msg("command applied")
	if err := s.rooms.Save(ctx, state); err != nil {
		log.Error().Err(err).Str("room", state.RoomID).Str("command", command).Msg("persist room snapshot")
		return err
	}
	return nil
}
