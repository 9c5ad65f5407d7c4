// Package lobby keeps the games running on the server, keyed by game ID.
package lobby

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/game"
	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tracerName = "github.com/aceofaces/aoa-server/internal/lobby"

// validGameID limits game IDs to names that are safe as replay file names.
var validGameID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Game is a registered game and its turn machine.
type Game struct {
	ID           string
	HostName     string
	HostFaction  page.Faction
	CreateTime   time.Time
	passwordHash []byte
	machine      *game.Machine
}

// Machine returns the game's turn machine.
func (g *Game) Machine() *game.Machine {
	return g.machine
}

// Protected reports whether joining requires a password.
func (g *Game) Protected() bool {
	return len(g.passwordHash) > 0
}

// GameSummary describes a game waiting for an opponent.
type GameSummary struct {
	ID          string       `json:"game_id"`
	HostName    string       `json:"host_name"`
	HostFaction page.Faction `json:"host_faction"`
	OpenFaction page.Faction `json:"open_faction"`
	Protected   bool         `json:"protected"`
	CreateTime  time.Time    `json:"created_at"`
}

// CreateGameRequest holds the parameters of a new game.
type CreateGameRequest struct {
	// GameID is generated when empty.
	GameID   string
	HostName string
	Faction  string
	// Password, when set, must be presented by the guest.
	Password string
}

// JoinGameRequest holds the parameters of a join.
type JoinGameRequest struct {
	GameID    string
	GuestName string
	Password  string
}

// Manager manages games
type Manager struct {
	games     map[string]*Game
	mu        sync.RWMutex
	logger    *zap.Logger
	provider  page.Provider
	opts      game.Options
	replayDir string
	notifier  Notifier
	tracer    trace.Tracer
}

// Option configures a Manager.
type Option func(*Manager)

// WithGameOptions sets the options every new machine is created with.
func WithGameOptions(opts game.Options) Option {
	return func(m *Manager) { m.opts = opts }
}

// WithReplayDir saves the history of every finished game under dir.
func WithReplayDir(dir string) Option {
	return func(m *Manager) { m.replayDir = dir }
}

// WithNotifier sets the receiver of game events.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// NewManager creates a new game manager
func NewManager(logger *zap.Logger, provider page.Provider, options ...Option) *Manager {
	m := &Manager{
		games:    make(map[string]*Game),
		logger:   logger,
		provider: provider,
		notifier: nopNotifier{},
	}
	for _, opt := range options {
		opt(m)
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	return m
}

func (m *Manager) startSpan(ctx context.Context, name, gameID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "lobby."+name, trace.WithAttributes(attribute.String("game.id", gameID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}

// CreateGame registers a new game with the host seated on the requested
// faction and returns its ID.
func (m *Manager) CreateGame(ctx context.Context, req CreateGameRequest) (id string, err error) {
	_, span := m.startSpan(ctx, "CreateGame", req.GameID)
	defer func() { endSpan(span, err) }()

	faction, err := page.ParseFaction(req.Faction)
	if err != nil {
		return "", err
	}
	hostName := strings.TrimSpace(req.HostName)
	if hostName == "" {
		return "", apperrors.New(apperrors.CodeInvalidInput, "host name is required")
	}

	id = strings.TrimSpace(req.GameID)
	if id == "" {
		id = uuid.New().String()
	}
	if !validGameID.MatchString(id) {
		return "", apperrors.New(apperrors.CodeInvalidInput,
			"game id %q must be 1 to 64 letters, digits, '-' or '_'", id)
	}

	var hash []byte
	if req.Password != "" {
		hash, err = bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return "", apperrors.Wrap(apperrors.CodeInvalidInput, err, "unusable game password")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.games[id]; exists {
		return "", apperrors.New(apperrors.CodeAlreadyExists, "game %s already exists", id)
	}

	machine, err := game.NewMachine(id, m.provider, hostName, faction, m.opts)
	if err != nil {
		return "", err
	}
	m.games[id] = &Game{
		ID:           id,
		HostName:     hostName,
		HostFaction:  faction,
		CreateTime:   time.Now(),
		passwordHash: hash,
		machine:      machine,
	}
	span.SetAttributes(attribute.String("game.id", id))

	m.logger.Info("game created",
		zap.String("game_id", id),
		zap.String("host", hostName),
		zap.String("faction", string(faction)),
		zap.Bool("protected", hash != nil),
	)
	return id, nil
}

// JoinGame seats the guest on the faction opposing the host.
func (m *Manager) JoinGame(ctx context.Context, req JoinGameRequest) (faction page.Faction, err error) {
	_, span := m.startSpan(ctx, "JoinGame", req.GameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(req.GameID)
	if err != nil {
		return "", err
	}
	if g.Protected() {
		if bcrypt.CompareHashAndPassword(g.passwordHash, []byte(req.Password)) != nil {
			m.logger.Warn("join rejected: wrong password", zap.String("game_id", g.ID))
			return "", apperrors.New(apperrors.CodePermissionDenied, "wrong password for game %s", g.ID)
		}
	}

	faction, err = g.machine.Join(req.GuestName)
	if err != nil {
		return "", err
	}

	m.logger.Info("player joined game",
		zap.String("game_id", g.ID),
		zap.String("guest", strings.TrimSpace(req.GuestName)),
		zap.String("faction", string(faction)),
	)
	m.notifier.Notify(Event{
		Kind:      EventGuestJoined,
		GameID:    g.ID,
		Recipient: faction.Opposing(),
		Faction:   faction,
		Message:   strings.TrimSpace(req.GuestName) + " joined the game.",
	})
	return faction, nil
}

// ListAvailableGames returns the games still waiting for a guest, oldest
// first.
func (m *Manager) ListAvailableGames(ctx context.Context) []GameSummary {
	_, span := m.startSpan(ctx, "ListAvailableGames", "")
	defer span.End()

	m.mu.RLock()
	games := make([]*Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	m.mu.RUnlock()

	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		if g.machine.Joined() {
			continue
		}
		out = append(out, GameSummary{
			ID:          g.ID,
			HostName:    g.HostName,
			HostFaction: g.HostFaction,
			OpenFaction: g.HostFaction.Opposing(),
			Protected:   g.Protected(),
			CreateTime:  g.CreateTime,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateTime.Equal(out[j].CreateTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreateTime.Before(out[j].CreateTime)
	})
	return out
}

// SubmitMove forwards a move to the game's machine. A game that ends is
// removed from the registry.
func (m *Manager) SubmitMove(ctx context.Context, gameID string, faction string, moveIndex int) (res game.Resolution, err error) {
	_, span := m.startSpan(ctx, "SubmitMove", gameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(gameID)
	if err != nil {
		return game.Resolution{}, err
	}
	f, err := m.participant(g, faction)
	if err != nil {
		return game.Resolution{}, err
	}

	res, err = g.machine.SubmitMove(f, moveIndex)
	if err != nil {
		m.logger.Debug("move rejected",
			zap.String("game_id", gameID),
			zap.String("faction", string(f)),
			zap.Int("move", moveIndex),
			zap.Error(err),
		)
		return game.Resolution{}, err
	}
	span.SetAttributes(attribute.String("game.outcome", string(res.Outcome)))

	if res.Revealed != nil {
		dir := *res.Revealed
		m.notifier.Notify(Event{
			Kind:      EventDirectionRevealed,
			GameID:    gameID,
			Recipient: f.Opposing(),
			Faction:   f,
			Direction: &dir,
			Message:   "Your opponent committed to a move heading " + string(dir) + ".",
		})
	}
	if res.Outcome == game.OutcomeWaiting {
		m.notifier.Notify(Event{
			Kind:      EventMoveReceived,
			GameID:    gameID,
			Recipient: f.Opposing(),
			Faction:   f,
			Message:   "Your opponent has moved.",
		})
		return res, nil
	}

	m.afterResolution(g, f, res)
	return res, nil
}

// SubmitLostDecision forwards a chase or flee decision to the game's
// machine.
func (m *Manager) SubmitLostDecision(ctx context.Context, gameID string, faction string, decision string) (res game.Resolution, err error) {
	_, span := m.startSpan(ctx, "SubmitLostDecision", gameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(gameID)
	if err != nil {
		return game.Resolution{}, err
	}
	f, err := m.participant(g, faction)
	if err != nil {
		return game.Resolution{}, err
	}
	d, err := game.ParseDecision(decision)
	if err != nil {
		return game.Resolution{}, err
	}

	res, err = g.machine.SubmitLostDecision(f, d)
	if err != nil {
		return game.Resolution{}, err
	}
	span.SetAttributes(attribute.String("game.outcome", string(res.Outcome)))

	if res.Outcome == game.OutcomeWaiting {
		m.notifier.Notify(Event{
			Kind:      EventDecisionReceived,
			GameID:    gameID,
			Recipient: f.Opposing(),
			Faction:   f,
			Message:   "Your opponent has decided.",
		})
		return res, nil
	}

	m.afterResolution(g, f, res)
	return res, nil
}

// afterResolution logs and broadcasts a resolution and retires the game
// when it is over.
func (m *Manager) afterResolution(g *Game, f page.Faction, res game.Resolution) {
	m.logger.Info("turn resolved",
		zap.String("game_id", g.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("page", res.Page),
		zap.Bool("game_over", res.GameOver),
	)
	m.notifier.Notify(resolutionEvent(g.ID, f, res))

	if !res.GameOver {
		return
	}

	m.logger.Info("game finished",
		zap.String("game_id", g.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.String("winner", res.Winner),
	)
	if m.replayDir != "" {
		path, err := g.machine.History().SaveToFile(m.replayDir)
		if err != nil {
			m.logger.Error("failed to save replay", zap.String("game_id", g.ID), zap.Error(err))
		} else {
			m.logger.Info("replay saved", zap.String("game_id", g.ID), zap.String("path", path))
		}
	}
	m.RemoveGame(g)
}

// CurrentPage returns the page both sides of the game are on. A game whose
// sides diverged is removed.
func (m *Manager) CurrentPage(ctx context.Context, gameID string) (number int, err error) {
	_, span := m.startSpan(ctx, "CurrentPage", gameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(gameID)
	if err != nil {
		return 0, err
	}
	number, err = g.machine.CurrentPage()
	if err != nil {
		m.logger.Error("game state diverged", zap.String("game_id", gameID), zap.Error(err))
		m.RemoveGame(g)
		return 0, err
	}
	return number, nil
}

// Status renders the situation of the named participant.
func (m *Manager) Status(ctx context.Context, gameID, participant string) (text string, err error) {
	_, span := m.startSpan(ctx, "Status", gameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(gameID)
	if err != nil {
		return "", err
	}
	return g.machine.Status(participant)
}

// State returns a consistent copy of a live game.
func (m *Manager) State(ctx context.Context, gameID string) (snap game.Snapshot, err error) {
	_, span := m.startSpan(ctx, "State", gameID)
	defer func() { endSpan(span, err) }()

	g, err := m.lookup(gameID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return g.machine.Snapshot(), nil
}

// History returns the recorded turns of a game. Finished games are read
// back from the replay directory when one is configured.
func (m *Manager) History(ctx context.Context, gameID string) (records []game.TurnRecord, err error) {
	_, span := m.startSpan(ctx, "History", gameID)
	defer func() { endSpan(span, err) }()

	if g, lookupErr := m.lookup(gameID); lookupErr == nil {
		return g.machine.History().All(), nil
	} else if m.replayDir == "" || !validGameID.MatchString(gameID) {
		return nil, lookupErr
	}

	h, err := game.LoadHistoryFromFile(m.replayDir, gameID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNotFound, err, "game %s not found", gameID)
	}
	return h.All(), nil
}

// GetGame retrieves a game by ID
func (m *Manager) GetGame(gameID string) (*Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[gameID]
	return g, ok
}

// RemoveGame removes a game if it is still the registered instance.
func (m *Manager) RemoveGame(g *Game) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.games[g.ID]; ok && current == g {
		delete(m.games, g.ID)
		m.logger.Info("game removed", zap.String("game_id", g.ID))
	}
}

// GetActiveGameCount returns the number of registered games.
func (m *Manager) GetActiveGameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *Manager) lookup(gameID string) (*Game, error) {
	g, ok := m.GetGame(gameID)
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "game %s not found", gameID)
	}
	return g, nil
}

func (m *Manager) participant(g *Game, faction string) (page.Faction, error) {
	f, err := page.ParseFaction(faction)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeNotAParticipant, err, "faction %q is not part of game %s", faction, g.ID)
	}
	return f, nil
}
