package game

import (
	"math"

	"github.com/aceofaces/aoa-server/internal/page"
)

// StartingHealth is the health each aircraft starts a game with.
const StartingHealth = 6.0

// Combatant is one side of a game: the pilot's name, faction and health.
type Combatant struct {
	Name    string
	Faction page.Faction
	Health  float64
}

// NewCombatant creates a combatant at the given health.
func NewCombatant(name string, faction page.Faction, health float64) *Combatant {
	return &Combatant{Name: name, Faction: faction, Health: health}
}

// ApplyDamage lowers health by amount, never below zero.
func (c *Combatant) ApplyDamage(amount float64) {
	c.Health = math.Max(0, c.Health-amount)
}

// IsAlive reports whether the aircraft is still flying.
func (c *Combatant) IsAlive() bool {
	return c.Health > 0
}

// HealthBand describes health for display.
func HealthBand(health float64) string {
	switch {
	case health <= 0:
		return "shot down"
	case health >= StartingHealth:
		return "undamaged"
	case health >= 4:
		return "lightly damaged"
	case health >= 2:
		return "badly damaged"
	default:
		return "critically damaged"
	}
}
