package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()
	handler := NewHTTPHandler(newTestLobby(t), nil, zaptest.NewLogger(t))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv}
}

func (c *apiClient) post(path string, body any) (int, map[string]any) {
	c.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(c.t, err)
	resp, err := http.Post(c.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(c.t, err)
	return decodeResponse(c.t, resp)
}

func (c *apiClient) get(path string) (int, map[string]any) {
	c.t.Helper()
	resp, err := http.Get(c.srv.URL + path)
	require.NoError(c.t, err)
	return decodeResponse(c.t, resp)
}

func decodeResponse(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHTTPGameFlow(t *testing.T) {
	c := newAPIClient(t)

	status, body := c.post("/create-game", map[string]any{"game_id": "g1", "player_name": "Alice", "faction": "allies"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "g1", body["game_id"])
	assert.Equal(t, float64(170), body["page"])

	status, body = c.get("/list-games")
	require.Equal(t, http.StatusOK, status)
	games := body["games"].([]any)
	require.Len(t, games, 1)
	assert.Equal(t, "german", games[0].(map[string]any)["open_faction"])

	status, body = c.post("/join-game", map[string]any{"game_id": "g1", "player_name": "Bob"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "german", body["faction"])
	assert.Equal(t, "Bob joined", body["message"])

	status, body = c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "allies", "move_index": 0})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "waiting", body["outcome"])

	status, body = c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "german", "move_index": 0})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "resolved", body["outcome"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, 2.0, body["damage"].(map[string]any)["german"])
	assert.Equal(t, 4.0, body["health"].(map[string]any)["german"])

	status, body = c.get("/get-current-page?game_id=g1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["page"])

	status, body = c.get("/get-player-status?game_id=g1&player_name=Bob")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["status"], "You have 4.0 health: lightly damaged.")

	status, body = c.get("/game-state?game_id=g1")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, float64(1), body["turn"])
	assert.Equal(t, "Alice", body["host"].(map[string]any)["name"])
	guest := body["guest"].(map[string]any)
	assert.Equal(t, "Bob", guest["name"])
	assert.Equal(t, 4.0, guest["health"])
	assert.Equal(t, "lightly damaged", guest["band"])

	status, body = c.get("/history?game_id=g1")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["turns"], 1)

	status, body = c.get("/healthz")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["active_games"])
}

func TestHTTPErrors(t *testing.T) {
	c := newAPIClient(t)

	status, body := c.post("/create-game", map[string]any{"game_id": "g1", "player_name": "Alice", "faction": "axis"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FACTION", body["code"])
	assert.NotEmpty(t, body["detail"])

	status, body = c.post("/join-game", map[string]any{"game_id": "nope", "player_name": "Bob"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])

	status, _ = c.post("/create-game", map[string]any{"game_id": "g1", "player_name": "Alice", "faction": "allies"})
	require.Equal(t, http.StatusOK, status)
	status, body = c.post("/create-game", map[string]any{"game_id": "g1", "player_name": "Carol", "faction": "german"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", body["code"])

	status, body = c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "allies", "move_index": 0})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "WRONG_STATE", body["code"])

	status, body = c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "allies"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", body["code"])

	status, body = c.post("/join-game", map[string]any{"game_id": "g1", "player_name": "Bob"})
	require.Equal(t, http.StatusOK, status, body)
	status, body = c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "allies", "move_index": 26})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_MOVE_INDEX", body["code"])

	status, body = c.post("/submit-lost-decision", map[string]any{"game_id": "g1", "faction": "allies", "decision": "chase"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "WRONG_STATE", body["code"])

	status, body = c.get("/get-player-status?game_id=g1&player_name=Carol")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NOT_A_PARTICIPANT", body["code"])
}

func TestHTTPMalformedBody(t *testing.T) {
	c := newAPIClient(t)

	resp, err := http.Post(c.srv.URL+"/create-game", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	status, body := decodeResponse(t, resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestHTTPLostDecisionFlow(t *testing.T) {
	c := newAPIClient(t)
	c.post("/create-game", map[string]any{"game_id": "g1", "player_name": "Alice", "faction": "allies"})
	c.post("/join-game", map[string]any{"game_id": "g1", "player_name": "Bob"})

	c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "german", "move_index": 0})
	status, body := c.post("/submit-move", map[string]any{"game_id": "g1", "faction": "allies", "move_index": 2})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "lost_contact", body["outcome"])

	c.post("/submit-lost-decision", map[string]any{"game_id": "g1", "faction": "allies", "decision": "chase"})
	status, body = c.post("/submit-lost-decision", map[string]any{"game_id": "g1", "faction": "german", "decision": "flee"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "half_victory", body["outcome"])
	assert.Equal(t, true, body["game_over"])
	assert.Equal(t, "Alice", body["winner"])

	status, _ = c.get("/get-current-page?game_id=g1")
	assert.Equal(t, http.StatusNotFound, status)
}
