package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"red-herring-service/internal/app"
	"red-herring-service/internal/domain"
	"red-herring-service/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := app.NewGameService(
		memory.NewRoomStore(),
		memory.NewQuestionRepository(memory.NewClassicLoader(), time.Minute),
		memory.NewHistoryLog(),
		domain.DefaultDeck,
	)
	server := httptest.NewServer(NewRouter(service, "https://herring.example"))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	return doJSONAs(t, method, url, "", body, out)
}

// doJSONAs sends the request with token in the session header when set.
func doJSONAs(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return res.StatusCode
}

func createRoom(t *testing.T, base string) string {
	t.Helper()
	var created createRoomResponse
	if status := doJSON(t, http.MethodPost, base+"/rooms", nil, &created); status != http.StatusCreated {
		t.Fatalf("create room status %d", status)
	}
	return created.RoomID
}

func join(t *testing.T, base, code, name string) joinResponse {
	t.Helper()
	var joined joinResponse
	if status := doJSON(t, http.MethodPost, base+"/rooms/"+code+"/players", joinRequest{Name: name}, &joined); status != http.StatusCreated {
		t.Fatalf("join %s status %d", name, status)
	}
	if joined.Token == "" || joined.Token == joined.Player.ID {
		t.Fatalf("join %s: expected a secret session token, got %q", name, joined.Token)
	}
	return joined
}

func TestRESTLobbyFlow(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)

	ana := join(t, server.URL, code, "Ana")
	if !ana.Player.IsAdmin {
		t.Fatalf("expected first player to be admin")
	}
	join(t, server.URL, strings.ToLower(code), "Ben")

	var view domain.RoomState
	if status := doJSONAs(t, http.MethodGet, server.URL+"/rooms/"+code, ana.Token, nil, &view); status != http.StatusOK {
		t.Fatalf("view status %d", status)
	}
	if len(view.Players) != 2 || view.Status != domain.StatusWaiting {
		t.Fatalf("unexpected view: %+v", view)
	}

	var resp app.Response
	status := doJSONAs(t, http.MethodPost, server.URL+"/rooms/"+code+"/commands", ana.Token, app.Command{Name: app.CommandStartGame}, &resp)
	if status != http.StatusConflict || resp.Error != "NotEnoughPlayers" {
		t.Fatalf("expected 409 NotEnoughPlayers, got %d %+v", status, resp)
	}

	join(t, server.URL, code, "Cid")
	status = doJSON(t, http.MethodPost, server.URL+"/rooms/"+code+"/commands", app.Command{Token: ana.Token, Name: app.CommandStartGame}, &resp)
	if status != http.StatusOK || !resp.OK || resp.State.Status != domain.StatusPlaying {
		t.Fatalf("expected game started, got %d %+v", status, resp)
	}

	var standings domain.Standings
	if status := doJSON(t, http.MethodGet, server.URL+"/rooms/"+code+"/standings", nil, &standings); status != http.StatusOK {
		t.Fatalf("standings status %d", status)
	}
	if len(standings.Entries) != 3 {
		t.Fatalf("expected three standings entries, got %d", len(standings.Entries))
	}

	var me domain.Player
	if status := doJSONAs(t, http.MethodGet, server.URL+"/rooms/"+code+"/players/"+ana.Player.ID, ana.Token, nil, &me); status != http.StatusOK || me.Name != "Ana" {
		t.Fatalf("player view: %d %+v", status, me)
	}
}

func TestRESTErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)
	ana := join(t, server.URL, code, "Ana")
	ben := join(t, server.URL, code, "Ben")
	join(t, server.URL, code, "Cid")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"unknown room", http.MethodGet, "/rooms/NOPE00", nil, http.StatusNotFound, "RoomNotFound"},
		{"unknown player", http.MethodGet, "/rooms/" + code + "/players/ghost", nil, http.StatusNotFound, "PlayerNotFound"},
		{"empty name", http.MethodPost, "/rooms/" + code + "/players", joinRequest{Name: "  "}, http.StatusBadRequest, "EmptyName"},
		{"non admin start", http.MethodPost, "/rooms/" + code + "/commands", app.Command{Token: ben.Token, Name: app.CommandStartGame}, http.StatusForbidden, "NotAuthorized"},
		{"unknown command", http.MethodPost, "/rooms/" + code + "/commands", app.Command{Token: ana.Token, Name: "dance"}, http.StatusBadRequest, "UnknownCommand"},
		{"bad history limit", http.MethodGet, "/history?limit=zero", nil, http.StatusBadRequest, "InvalidPayload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body struct {
				Error string `json:"error"`
			}
			status := doJSON(t, tc.method, server.URL+tc.path, tc.body, &body)
			if status != tc.status || body.Error != tc.kind {
				t.Fatalf("expected %d %s, got %d %s", tc.status, tc.kind, status, body.Error)
			}
		})
	}
}

func TestRESTRequiresOwnToken(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)
	ana := join(t, server.URL, code, "Ana")
	ben := join(t, server.URL, code, "Ben")
	join(t, server.URL, code, "Cid")

	var started app.Response
	if status := doJSONAs(t, http.MethodPost, server.URL+"/rooms/"+code+"/commands", ana.Token, app.Command{Name: app.CommandStartGame}, &started); status != http.StatusOK {
		t.Fatalf("start status %d: %+v", status, started)
	}
	teller := started.State.Rounds[0].StorytellerID

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
	}{
		{"other player's record", http.MethodGet, "/rooms/" + code + "/players/" + ben.Player.ID, ana.Token, nil},
		{"record without token", http.MethodGet, "/rooms/" + code + "/players/" + ben.Player.ID, "", nil},
		{"record with public id", http.MethodGet, "/rooms/" + code + "/players/" + ben.Player.ID, ben.Player.ID, nil},
		{"storyteller view by public id", http.MethodGet, "/rooms/" + code, teller, nil},
		{"view with forged token", http.MethodGet, "/rooms/" + code, "forged", nil},
		{"command with public id", http.MethodPost, "/rooms/" + code + "/commands", ana.Player.ID, app.Command{Name: app.CommandEndGame}},
		{"command without token", http.MethodPost, "/rooms/" + code + "/commands", "", app.Command{Name: app.CommandEndGame}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body struct {
				Error string `json:"error"`
			}
			status := doJSONAs(t, tc.method, server.URL+tc.path, tc.token, tc.body, &body)
			if status != http.StatusForbidden || body.Error != "NotAuthorized" {
				t.Fatalf("expected 403 NotAuthorized, got %d %s", status, body.Error)
			}
		})
	}

	var own domain.Player
	if status := doJSONAs(t, http.MethodGet, server.URL+"/rooms/"+code+"/players/"+ben.Player.ID, ben.Token, nil, &own); status != http.StatusOK || own.ID != ben.Player.ID {
		t.Fatalf("expected Ben's own record, got %d %+v", status, own)
	}

	var raw json.RawMessage
	if status := doJSON(t, http.MethodGet, server.URL+"/rooms/"+code, nil, &raw); status != http.StatusOK {
		t.Fatalf("spectator view status %d", status)
	}
	for _, token := range []string{ana.Token, ben.Token} {
		if strings.Contains(string(raw), token) {
			t.Fatalf("room view leaks a session token")
		}
	}
	var spectator domain.RoomState
	if err := json.Unmarshal(raw, &spectator); err != nil {
		t.Fatalf("decode spectator view: %v", err)
	}
	for _, p := range spectator.Players {
		if p.HasRedFish {
			t.Fatalf("spectator view exposes the red fish holder")
		}
	}
}

func TestRESTHistory(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)
	ana := join(t, server.URL, code, "Ana")
	join(t, server.URL, code, "Ben")
	join(t, server.URL, code, "Cid")

	var resp app.Response
	for _, name := range []string{app.CommandStartGame, app.CommandEndGame} {
		if status := doJSONAs(t, http.MethodPost, server.URL+"/rooms/"+code+"/commands", ana.Token, app.Command{Name: name}, &resp); status != http.StatusOK {
			t.Fatalf("%s status %d: %+v", name, status, resp)
		}
	}

	var records []domain.GameRecord
	if status := doJSON(t, http.MethodGet, server.URL+"/history?limit=5", nil, &records); status != http.StatusOK {
		t.Fatalf("history status %d", status)
	}
	if len(records) != 1 || records[0].RoomID != code {
		t.Fatalf("expected archived game, got %+v", records)
	}
}

func TestQRCode(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)

	res, err := http.Get(server.URL + "/rooms/" + code + "/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response: %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}

	h := &Handlers{}
	req := httptest.NewRequest(http.MethodGet, "/rooms/ABC123/qr", nil)
	req.Host = "party.local"
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := h.joinURL(req, "ABC123"); got != "https://party.local/rooms/ABC123" {
		t.Fatalf("unexpected join url %q", got)
	}
}

func TestStatusFor(t *testing.T) {
	if statusFor("GuessingIncomplete") != http.StatusConflict {
		t.Fatalf("rule violations should be 409")
	}
	if statusFor(domain.KindInternal) != http.StatusInternalServerError {
		t.Fatalf("internal errors should be 500")
	}
	if statusFor(domain.Kind(domain.ErrRoomUnavailable)) != http.StatusServiceUnavailable {
		t.Fatalf("rooms owned by another instance should be 503")
	}
}

func TestWebSocketCommandFlow(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)
	ana := join(t, server.URL, code, "Ana")
	join(t, server.URL, code, "Ben")
	join(t, server.URL, code, "Cid")

	u := "ws" + server.URL[len("http"):] + "/rooms/" + code + "/ws?token=" + ana.Token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial state first.
	typ, payload := readNext(t, conn)
	if typ != "state" {
		t.Fatalf("expected state, got %s", typ)
	}
	var state domain.RoomState
	if err := json.Unmarshal(payload, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.Players) != 3 || state.Questions != nil {
		t.Fatalf("unexpected initial view: %+v", state)
	}

	if err := conn.WriteJSON(map[string]any{"type": app.CommandStartGame}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	// Expect the result and the pushed state, in either order.
	resultSeen, pushedSeen := false, false
	for i := 0; i < 3 && !(resultSeen && pushedSeen); i++ {
		typ, payload := readNext(t, conn)
		switch typ {
		case "result":
			var resp app.Response
			if err := json.Unmarshal(payload, &resp); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if !resp.OK {
				t.Fatalf("start failed: %+v", resp)
			}
			resultSeen = true
		case "state":
			var st domain.RoomState
			if err := json.Unmarshal(payload, &st); err != nil {
				t.Fatalf("decode state: %v", err)
			}
			if st.Status == domain.StatusPlaying {
				pushedSeen = true
			}
		}
	}
	if !resultSeen || !pushedSeen {
		t.Fatalf("expected result and state, got result=%v state=%v", resultSeen, pushedSeen)
	}
}

func TestWebSocketRequiresOwnToken(t *testing.T) {
	server := newTestServer(t)
	code := createRoom(t, server.URL)
	ana := join(t, server.URL, code, "Ana")
	base := "ws" + server.URL[len("http"):] + "/rooms/"

	cases := []struct {
		name   string
		url    string
		header http.Header
		status int
	}{
		{"no token", base + code + "/ws", nil, http.StatusForbidden},
		{"public id as token", base + code + "/ws?token=" + ana.Player.ID, nil, http.StatusForbidden},
		{"playerId query", base + code + "/ws?playerId=" + ana.Player.ID, nil, http.StatusForbidden},
		{"unknown token", base + code + "/ws", http.Header{tokenHeader: {"forged"}}, http.StatusForbidden},
		{"unknown room", base + "NOPE00/ws?token=" + ana.Token, nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, res, err := websocket.DefaultDialer.Dial(tc.url, tc.header)
			if err == nil {
				t.Fatalf("expected handshake failure")
			}
			if res == nil || res.StatusCode != tc.status {
				t.Fatalf("expected %d, got %+v", tc.status, res)
			}
		})
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+code+"/ws", http.Header{tokenHeader: {ana.Token}})
	if err != nil {
		t.Fatalf("dial with header token: %v", err)
	}
	defer conn.Close()
	if typ, _ := readNext(t, conn); typ != "state" {
		t.Fatalf("expected state, got %s", typ)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}
