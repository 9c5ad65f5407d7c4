package lobby

import (
	"github.com/aceofaces/aoa-server/internal/game"
	"github.com/aceofaces/aoa-server/internal/page"
)

// EventKind names what happened in a game.
type EventKind string

const (
	EventGuestJoined       EventKind = "guest_joined"
	EventMoveReceived      EventKind = "move_received"
	EventDecisionReceived  EventKind = "decision_received"
	EventDirectionRevealed EventKind = "direction_revealed"
	EventResolved          EventKind = "resolved"
)

// Event is pushed to the subscribers of a game.
type Event struct {
	Kind   EventKind `json:"kind"`
	GameID string    `json:"game_id"`
	// Recipient restricts delivery to one faction. Empty means both.
	Recipient page.Faction `json:"-"`
	// Faction is the side whose action produced the event.
	Faction   page.Faction             `json:"faction,omitempty"`
	Outcome   game.Outcome             `json:"outcome,omitempty"`
	Message   string                   `json:"message,omitempty"`
	Page      int                      `json:"page,omitempty"`
	GameOver  bool                     `json:"game_over,omitempty"`
	Winner    string                   `json:"winner,omitempty"`
	Direction *page.Direction          `json:"direction,omitempty"`
	Health    map[page.Faction]float64 `json:"health,omitempty"`
}

// Notifier receives game events. Implementations must not block.
type Notifier interface {
	Notify(ev Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func resolutionEvent(gameID string, faction page.Faction, res game.Resolution) Event {
	return Event{
		Kind:     EventResolved,
		GameID:   gameID,
		Faction:  faction,
		Outcome:  res.Outcome,
		Message:  res.Message,
		Page:     res.Page,
		GameOver: res.GameOver,
		Winner:   res.Winner,
		Health:   res.Health,
	}
}
