package app

import (
	"context"
	"encoding/json"
	"fmt"

	"red-herring-service/internal/domain"
)

// Command names accepted by Dispatch.
const (
	CommandCreateRoom   = "createRoom"
	CommandJoinRoom     = "joinRoom"
	CommandStartGame    = "startGame"
	CommandSubmitAnswer = "submitAnswer"
	CommandGuessAnswer  = "guessAnswer"
	CommandEndGuessing  = "endGuessing"
	CommandEndGame      = "endGame"
)

// Command is the transport-neutral envelope for a player intent. Token is the
// session token JoinRoom issued; it is the only proof of who is acting.
type Command struct {
	RoomID  string          `json:"roomId"`
	Token   string          `json:"token,omitempty"`
	Name    string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is what a transport sends back for a Command. State is the acting
// player's view of the room after the command.
type Response struct {
	OK            bool              `json:"ok"`
	RoomID        string            `json:"roomId,omitempty"`
	Player        *domain.Player    `json:"player,omitempty"`
	Token         string            `json:"token,omitempty"`
	State         *domain.RoomState `json:"state,omitempty"`
	Error         string            `json:"error,omitempty"`
	Message       string            `json:"message,omitempty"`
	Notifications []string          `json:"notifications"`
}

type joinPayload struct {
	PlayerName string `json:"playerName"`
}

type submitPayload struct {
	Answer string `json:"answer"`
}

type guessPayload struct {
	TargetPlayerID   string `json:"targetPlayerId"`
	GuessedIsRedFish bool   `json:"guessedIsRedFish"`
}

// Dispatch decodes and runs cmd. It never returns a Go error: failures are
// reported through Response.Error so any transport can relay them verbatim.
func (s *GameService) Dispatch(ctx context.Context, cmd Command) Response {
	var (
		state domain.RoomState
		notes []string
		err   error
		actor string
	)

	switch cmd.Name {
	case CommandStartGame, CommandSubmitAnswer, CommandGuessAnswer, CommandEndGuessing, CommandEndGame:
		if actor, err = s.actor(ctx, cmd.RoomID, cmd.Token); err != nil {
			return failure(err)
		}
	}

	switch cmd.Name {
	case CommandCreateRoom:
		roomID, notes, err := s.CreateRoom(ctx)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, RoomID: roomID, Notifications: notes}
	case CommandJoinRoom:
		var p joinPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return failure(err)
		}
		seat, notes, err := s.JoinRoom(ctx, cmd.RoomID, p.PlayerName)
		if err != nil {
			return failure(err)
		}
		view, err := s.ViewFor(ctx, cmd.RoomID, seat.Token)
		if err != nil {
			return failure(err)
		}
		return Response{OK: true, RoomID: view.RoomID, Player: &seat.Player, Token: seat.Token, State: &view, Notifications: notes}
	case CommandStartGame:
		state, notes, err = s.StartGame(ctx, cmd.RoomID, actor)
	case CommandSubmitAnswer:
		var p submitPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return failure(err)
		}
		state, notes, err = s.SubmitAnswer(ctx, cmd.RoomID, actor, p.Answer)
	case CommandGuessAnswer:
		var p guessPayload
		if err := decode(cmd.Payload, &p); err != nil {
			return failure(err)
		}
		state, notes, err = s.GuessAnswer(ctx, cmd.RoomID, actor, p.TargetPlayerID, p.GuessedIsRedFish)
	case CommandEndGuessing:
		state, notes, err = s.EndGuessing(ctx, cmd.RoomID, actor)
	case CommandEndGame:
		state, notes, err = s.EndGame(ctx, cmd.RoomID, actor)
	default:
		return failure(fmt.Errorf("%w: %q", domain.ErrUnknownCommand, cmd.Name))
	}
	if err != nil {
		return failure(err)
	}

	view := state.ViewFor(actor)
	if notes == nil {
		notes = []string{}
	}
	return Response{OK: true, RoomID: view.RoomID, State: &view, Notifications: notes}
}

// actor resolves a session token to a player id. Unknown tokens resolve to no
// player, which every command rejects as ErrNotAuthorized after its own
// phase checks.
func (s *GameService) actor(ctx context.Context, roomID, token string) (string, error) {
	state, err := s.GetState(ctx, roomID)
	if err != nil {
		return "", err
	}
	if player := state.PlayerByToken(token); player != nil {
		return player.ID, nil
	}
	return "", nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", domain.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func failure(err error) Response {
	return Response{
		OK:            false,
		Error:         domain.Kind(err),
		Message:       err.Error(),
		Notifications: []string{err.Error()},
	}
}
