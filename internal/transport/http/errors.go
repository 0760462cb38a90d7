package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"red-herring-service/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps an error kind to the HTTP status a REST caller sees.
func statusFor(kind string) int {
	switch kind {
	case "RoomNotFound", "PlayerNotFound", "DeckNotFound":
		return http.StatusNotFound
	case "NotAuthorized":
		return http.StatusForbidden
	case "EmptyName", "EmptyAnswer", "InvalidTarget", "UnknownCommand", "InvalidPayload":
		return http.StatusBadRequest
	case "RateLimited":
		return http.StatusTooManyRequests
	case "RoomUnavailable":
		return http.StatusServiceUnavailable
	case "RoomFull", "RoomExists", "GameAlreadyStarted", "GameNotStarted", "GameEnded",
		"NotEnoughPlayers", "AlreadySubmitted", "AlreadyGuessed", "SubmissionsPending",
		"GuessingIncomplete":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}
