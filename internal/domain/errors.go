package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve to a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a room already holds MaxPlayers players.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomExists indicates a room code collision on insert.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomCodeExhausted is returned when no free room code could be generated.
	ErrRoomCodeExhausted = errors.New("could not allocate a room code")
	// ErrGameAlreadyStarted is returned when joining or starting a room that left the lobby.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrGameNotStarted is returned for round commands sent to a room still in the lobby.
	ErrGameNotStarted = errors.New("game has not started")
	// ErrGameEnded is returned for every command sent to a finished room.
	ErrGameEnded = errors.New("game has ended")
	// ErrNotEnoughPlayers is returned when starting with fewer than MinPlayers players.
	ErrNotEnoughPlayers = errors.New("not enough players")
	// ErrNotAuthorized is returned when the acting player may not issue the command.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrPlayerNotFound is returned when a queried player is not part of the room.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrEmptyName is returned when a player name is blank after trimming.
	ErrEmptyName = errors.New("player name is empty")
	// ErrEmptyAnswer is returned when an answer is blank after trimming.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrAlreadySubmitted is returned on a second answer in the same round.
	ErrAlreadySubmitted = errors.New("answer already submitted")
	// ErrAlreadyGuessed is returned when judging a submission that already has a verdict.
	ErrAlreadyGuessed = errors.New("submission already judged")
	// ErrInvalidTarget is returned when judging a player without a submission.
	ErrInvalidTarget = errors.New("target has no submission this round")
	// ErrSubmissionsPending is returned when judging starts before every answer is in.
	ErrSubmissionsPending = errors.New("waiting for submissions")
	// ErrGuessingIncomplete is returned when a round is settled before it may be.
	ErrGuessingIncomplete = errors.New("round cannot be settled yet")
	// ErrNoQuestions indicates an empty question pool.
	ErrNoQuestions = errors.New("question pool is empty")
	// ErrDeckNotFound indicates the question deck could not be loaded.
	ErrDeckNotFound = errors.New("question deck not found")
	// ErrUnknownCommand is returned when a command name is not recognised.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidPayload is returned when a command payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid command payload")
	// ErrRateLimited is returned when a connection sends messages faster than allowed.
	ErrRateLimited = errors.New("too many messages")
	// ErrRoomUnavailable is returned when another instance owns the room.
	ErrRoomUnavailable = errors.New("room is hosted by another instance")
)

// KindInternal is reported for errors outside the game's own vocabulary.
const KindInternal = "Internal"

var kinds = []struct {
	err  error
	kind string
}{
	{ErrRoomNotFound, "RoomNotFound"},
	{ErrRoomFull, "RoomFull"},
	{ErrRoomExists, "RoomExists"},
	{ErrRoomCodeExhausted, "RoomCodeExhausted"},
	{ErrGameAlreadyStarted, "GameAlreadyStarted"},
	{ErrGameNotStarted, "GameNotStarted"},
	{ErrGameEnded, "GameEnded"},
	{ErrNotEnoughPlayers, "NotEnoughPlayers"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrPlayerNotFound, "PlayerNotFound"},
	{ErrEmptyName, "EmptyName"},
	{ErrEmptyAnswer, "EmptyAnswer"},
	{ErrAlreadySubmitted, "AlreadySubmitted"},
	{ErrAlreadyGuessed, "AlreadyGuessed"},
	{ErrInvalidTarget, "InvalidTarget"},
	{ErrSubmissionsPending, "SubmissionsPending"},
	{ErrGuessingIncomplete, "GuessingIncomplete"},
	{ErrNoQuestions, "NoQuestions"},
	{ErrDeckNotFound, "DeckNotFound"},
	{ErrUnknownCommand, "UnknownCommand"},
	{ErrInvalidPayload, "InvalidPayload"},
	{ErrRateLimited, "RateLimited"},
	{ErrRoomUnavailable, "RoomUnavailable"},
}

// Kind maps err onto the error vocabulary clients see. Wrapped errors are unwrapped.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
