package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/lobby"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type createGameRequest struct {
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name"`
	Faction    string `json:"faction"`
	Password   string `json:"password"`
}

type joinGameRequest struct {
	GameID     string `json:"game_id"`
	PlayerName string `json:"player_name"`
	Password   string `json:"password"`
}

type submitMoveRequest struct {
	GameID    string `json:"game_id"`
	Faction   string `json:"faction"`
	MoveIndex *int   `json:"move_index"`
}

type submitLostDecisionRequest struct {
	GameID   string `json:"game_id"`
	Faction  string `json:"faction"`
	Decision string `json:"decision"`
}

// HTTPHandler serves the JSON API and the WebSocket endpoint.
type HTTPHandler struct {
	lobby  *lobby.Manager
	hub    *Hub
	logger *zap.Logger
	mux    *http.ServeMux
}

// NewHTTPHandler builds the HTTP routes. hub may be nil, in which case
// /ws is not served.
func NewHTTPHandler(l *lobby.Manager, hub *Hub, logger *zap.Logger) *HTTPHandler {
	h := &HTTPHandler{lobby: l, hub: hub, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /create-game", h.createGame)
	h.mux.HandleFunc("GET /list-games", h.listGames)
	h.mux.HandleFunc("POST /join-game", h.joinGame)
	h.mux.HandleFunc("POST /submit-move", h.submitMove)
	h.mux.HandleFunc("POST /submit-lost-decision", h.submitLostDecision)
	h.mux.HandleFunc("GET /get-current-page", h.currentPage)
	h.mux.HandleFunc("GET /get-player-status", h.playerStatus)
	h.mux.HandleFunc("GET /game-state", h.gameState)
	h.mux.HandleFunc("GET /history", h.history)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"active_games": h.lobby.GetActiveGameCount(),
		})
	})
	if hub != nil {
		h.mux.HandleFunc("GET /ws", hub.ServeWS)
	}
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		// The upgrader needs the raw writer for hijacking.
		h.mux.ServeHTTP(w, r)
		return
	}
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.logger.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)),
	)
}

func (h *HTTPHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := h.lobby.CreateGame(r.Context(), lobby.CreateGameRequest{
		GameID:   req.GameID,
		HostName: req.PlayerName,
		Faction:  req.Faction,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	number, err := h.lobby.CurrentPage(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": id,
		"page":    number,
		"message": "Game " + id + " created. Waiting for an opponent.",
	})
}

func (h *HTTPHandler) listGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"games": summaryFields(h.lobby.ListAvailableGames(r.Context())),
	})
}

func (h *HTTPHandler) joinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	faction, err := h.lobby.JoinGame(r.Context(), lobby.JoinGameRequest{
		GameID:    req.GameID,
		GuestName: req.PlayerName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": strings.TrimSpace(req.PlayerName) + " joined",
		"faction": string(faction),
	})
}

func (h *HTTPHandler) submitMove(w http.ResponseWriter, r *http.Request) {
	var req submitMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.MoveIndex == nil {
		writeError(w, h.logger, badRequest("move_index is required"))
		return
	}
	res, err := h.lobby.SubmitMove(r.Context(), req.GameID, req.Faction, *req.MoveIndex)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resolutionFields(res))
}

func (h *HTTPHandler) submitLostDecision(w http.ResponseWriter, r *http.Request) {
	var req submitLostDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.lobby.SubmitLostDecision(r.Context(), req.GameID, req.Faction, req.Decision)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resolutionFields(res))
}

func (h *HTTPHandler) currentPage(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	number, err := h.lobby.CurrentPage(r.Context(), gameID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game_id": gameID, "page": number})
}

func (h *HTTPHandler) playerStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text, err := h.lobby.Status(r.Context(), q.Get("game_id"), q.Get("player_name"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": text})
}

func (h *HTTPHandler) gameState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lobby.State(r.Context(), r.URL.Query().Get("game_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *HTTPHandler) history(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	records, err := h.lobby.History(r.Context(), gameID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game_id": gameID, "turns": records})
}

func badRequest(msg string) error {
	return apperrors.New(apperrors.CodeInvalidInput, "%s", msg)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError reports err as {"detail", "code"} with the status mapped from
// its code. Errors without a code are logged and hidden from the client.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()
	detail := err.Error()
	if code == apperrors.CodeUnknown {
		logger.Error("unhandled error", zap.Error(err))
		detail = "an unexpected error occurred"
	}
	writeJSON(w, status, map[string]any{"detail": detail, "code": string(code)})
}
