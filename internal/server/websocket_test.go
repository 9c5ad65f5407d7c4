package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func dialGame(t *testing.T, srv *httptest.Server, gameID, faction string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game_id=" + gameID + "&faction=" + faction
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubDeliversEventsToSubscribers(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(logger)
	go hub.Run(ctx)

	l := newTestLobby(t, lobby.WithNotifier(hub))
	srv := httptest.NewServer(NewHTTPHandler(l, hub, logger))
	t.Cleanup(srv.Close)

	_, err := l.CreateGame(ctx, lobby.CreateGameRequest{GameID: "g1", HostName: "Alice", Faction: "allies"})
	require.NoError(t, err)

	allies := dialGame(t, srv, "g1", "allies")
	german := dialGame(t, srv, "g1", "german")

	_, err = l.JoinGame(ctx, lobby.JoinGameRequest{GameID: "g1", GuestName: "Bob"})
	require.NoError(t, err)
	ev := readEvent(t, allies)
	assert.Equal(t, string(lobby.EventGuestJoined), ev["kind"])

	_, err = l.SubmitMove(ctx, "g1", "german", 0)
	require.NoError(t, err)
	ev = readEvent(t, allies)
	assert.Equal(t, string(lobby.EventMoveReceived), ev["kind"])
	assert.Equal(t, "german", ev["faction"])

	_, err = l.SubmitMove(ctx, "g1", "allies", 0)
	require.NoError(t, err)
	for _, conn := range []*websocket.Conn{allies, german} {
		ev = readEvent(t, conn)
		assert.Equal(t, string(lobby.EventResolved), ev["kind"])
		assert.Equal(t, float64(1), ev["page"])
	}
}

func TestServeWSRejectsBadFaction(t *testing.T) {
	logger := zaptest.NewLogger(t)
	hub := NewHub(logger)
	srv := httptest.NewServer(NewHTTPHandler(newTestLobby(t), hub, logger))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game_id=g1&faction=axis"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
