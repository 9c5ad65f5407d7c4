// Package page holds the precomputed decision graph both sides fly through.
//
// Each faction has its own table of pages. A page describes the situation
// from that faction's point of view (range, who is tailing, who is exposed
// to fire) and lists the transition for every one of the 26 moves.
package page

import (
	"strings"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
)

const (
	// SentinelPage means the two aircraft lost track of each other.
	SentinelPage = 223
	// DefaultStartPage is the page both sides start a game on.
	DefaultStartPage = 170
	// MoveCount is the number of moves offered by every page.
	MoveCount = 26
)

// Faction is one of the two opposing sides.
type Faction string

const (
	FactionAllies Faction = "allies"
	FactionGerman Faction = "german"
)

// Factions lists both factions in a stable order.
var Factions = []Faction{FactionAllies, FactionGerman}

// ParseFaction parses a faction name case-insensitively.
func ParseFaction(s string) (Faction, error) {
	switch Faction(strings.ToLower(strings.TrimSpace(s))) {
	case FactionAllies:
		return FactionAllies, nil
	case FactionGerman:
		return FactionGerman, nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidFaction, "unknown faction %q", s)
	}
}

// Opposing returns the other faction.
func (f Faction) Opposing() Faction {
	if f == FactionAllies {
		return FactionGerman
	}
	return FactionAllies
}

// Valid reports whether f is a known faction.
func (f Faction) Valid() bool {
	return f == FactionAllies || f == FactionGerman
}

// Distance is the range between the two aircraft.
type Distance string

const (
	DistanceLong   Distance = "long"
	DistanceMedium Distance = "medium"
	DistanceClose  Distance = "close"
)

func (d Distance) Valid() bool {
	switch d {
	case DistanceLong, DistanceMedium, DistanceClose:
		return true
	}
	return false
}

// FireType says which side is exposed to enemy fire, from the page's own
// perspective.
type FireType string

const (
	FireOut    FireType = "out"
	FireIn     FireType = "in"
	FireMutual FireType = "mutual"
	FireNone   FireType = "none"
)

// FireTypes lists every fire type.
var FireTypes = []FireType{FireOut, FireIn, FireMutual, FireNone}

func (f FireType) Valid() bool {
	switch f {
	case FireOut, FireIn, FireMutual, FireNone:
		return true
	}
	return false
}

// Direction is the lateral direction a move commits to.
type Direction string

const (
	DirectionLeft     Direction = "left"
	DirectionStraight Direction = "straight"
	DirectionRight    Direction = "right"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionLeft, DirectionStraight, DirectionRight:
		return true
	}
	return false
}

// Movement is one choice offered by a page.
type Movement struct {
	Index     int
	Name      string
	Modifier  int
	Direction Direction
	Descent   bool
	Flair     bool
	// NextPage is the intermediate page reached by this move from the page
	// it belongs to. Zero means the move is not available there.
	NextPage int
}

// Available reports whether the move has a transition on its page.
func (m Movement) Available() bool {
	return m.NextPage > 0
}

// Page is a faction-scoped node of the decision graph. Pages are values and
// are replaced wholesale, never edited.
type Page struct {
	Faction  Faction
	Number   int
	Distance Distance
	Tail     bool
	Fire     FireType
	Moves    []Movement
}

// IsSentinel reports whether the page is the lost-contact page.
func (p Page) IsSentinel() bool {
	return p.Number == SentinelPage
}

// Move returns the movement with the given index.
func (p Page) Move(index int) (Movement, error) {
	if index < 0 || index >= len(p.Moves) {
		return Movement{}, apperrors.New(apperrors.CodeInvalidMoveIndex,
			"move index %d out of range 0..%d", index, len(p.Moves)-1)
	}
	return p.Moves[index], nil
}

// Provider looks pages up. Implementations must be free of side effects.
type Provider interface {
	// LoadPage returns the page for a faction.
	LoadPage(faction Faction, number int) (Page, error)
	// FindResult returns the page reached from midPage by moveIndex in the
	// faction's table.
	FindResult(faction Faction, midPage, moveIndex int) (int, error)
}
