package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"red-herring-service/internal/app"
	"red-herring-service/internal/domain"
)

// tokenHeader carries the session token JoinRoom issued. Player ids are public
// and never act as credentials.
const tokenHeader = "X-Player-Token"

// Handlers exposes GameService over REST.
type Handlers struct {
	service   *app.GameService
	publicURL string
}

func NewHandlers(service *app.GameService, publicURL string) *Handlers {
	return &Handlers{service: service, publicURL: publicURL}
}

// NewRouter wires every REST route plus the websocket endpoint.
func NewRouter(service *app.GameService, publicURL string) *httprouter.Router {
	h := NewHandlers(service, publicURL)
	ws := NewWSHandler(service)

	mux := httprouter.New()
	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.POST("/rooms", h.createRoom)
	mux.GET("/rooms/:code", h.roomView)
	mux.POST("/rooms/:code/players", h.joinRoom)
	mux.GET("/rooms/:code/players/:id", h.playerView)
	mux.GET("/rooms/:code/standings", h.standings)
	mux.POST("/rooms/:code/commands", h.command)
	mux.GET("/rooms/:code/qr", h.qr)
	mux.GET("/rooms/:code/ws", ws.ServeWS)
	mux.GET("/history", h.history)
	return mux
}

type createRoomResponse struct {
	RoomID        string   `json:"roomId"`
	Notifications []string `json:"notifications"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	Player        domain.Player `json:"player"`
	Token         string        `json:"token"`
	Notifications []string      `json:"notifications"`
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	code, notes, err := h.service.CreateRoom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: code, Notifications: notes})
}

func (h *Handlers) joinRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}
	seat, notes, err := h.service.JoinRoom(r.Context(), ps.ByName("code"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{Player: seat.Player, Token: seat.Token, Notifications: notes})
}

func (h *Handlers) roomView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.service.ViewFor(r.Context(), ps.ByName("code"), r.Header.Get(tokenHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) playerView(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	player, err := h.service.GetPlayerView(r.Context(), ps.ByName("code"), r.Header.Get(tokenHeader), ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

func (h *Handlers) standings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	standings, err := h.service.Standings(r.Context(), ps.ByName("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *Handlers) command(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var cmd app.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}
	cmd.RoomID = ps.ByName("code")
	if token := r.Header.Get(tokenHeader); token != "" {
		cmd.Token = token
	}
	resp := h.service.Dispatch(r.Context(), cmd)
	status := http.StatusOK
	if !resp.OK {
		status = statusFor(resp.Error)
	}
	writeJSON(w, status, resp)
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidPayload))
			return
		}
		limit = n
	}
	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
