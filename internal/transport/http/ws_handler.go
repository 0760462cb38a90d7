package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"red-herring-service/internal/app"
	"red-herring-service/internal/domain"
)

const (
	messagesPerSecond = 5
	messageBurst      = 10
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades a joined player's connection. The session token comes from
// the X-Player-Token header or, for browsers that cannot set headers, the
// token query parameter. Every inbound message is a command named by its type;
// the reply is a "result" and every committed room change is pushed as that
// player's "state".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("code")
	token := r.Header.Get(tokenHeader)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeError(w, domain.ErrNotAuthorized)
		return
	}
	player, err := h.service.Authenticate(r.Context(), roomID, token)
	if err != nil {
		writeError(w, err)
		return
	}
	playerID := player.ID

	updates, cancel, err := h.service.Subscribe(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("room", roomID).Str("player", playerID).Logger()
	logger.Debug().Msg("ws connected")

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	enqueue := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write failed")
				// Unblock the read loop.
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case state, ok := <-updates:
				if !ok {
					// Room expired.
					_ = conn.Close()
					return
				}
				if !enqueue(outboundMessage{Type: "state", Payload: state.ViewFor(playerID)}) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(messagesPerSecond), messageBurst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			if !enqueue(outboundMessage{Type: "error", Payload: errorBody{
				Error:   domain.Kind(domain.ErrRateLimited),
				Message: domain.ErrRateLimited.Error(),
			}}) {
				break
			}
			continue
		}
		resp := h.service.Dispatch(r.Context(), app.Command{
			RoomID:  roomID,
			Token:   token,
			Name:    inbound.Type,
			Payload: inbound.Payload,
		})
		if !enqueue(outboundMessage{Type: "result", Payload: resp}) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
	logger.Debug().Msg("ws disconnected")
}
