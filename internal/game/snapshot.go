package game

import "github.com/aceofaces/aoa-server/internal/page"

// CombatantView is a read-only copy of a combatant.
type CombatantView struct {
	Name    string       `json:"name"`
	Faction page.Faction `json:"faction"`
	Health  float64      `json:"health"`
	Band    string       `json:"band"`
}

// Snapshot captures a consistent view of a machine.
type Snapshot struct {
	ID        string        `json:"game_id"`
	Host      CombatantView `json:"host"`
	Guest     CombatantView `json:"guest"`
	Joined    bool          `json:"joined"`
	Page      int           `json:"page"`
	LostState bool          `json:"lost_state"`
	// Tailing is the faction currently tailing, or empty.
	Tailing    page.Faction          `json:"tailing,omitempty"`
	TailedPage int                   `json:"tailed_page,omitempty"`
	Turn       int                   `json:"turn"`
	Pending    map[page.Faction]bool `json:"pending"`
	Decided    map[page.Faction]bool `json:"decided"`
	// Revealed is the tailed side's committed direction while the tailing
	// side has yet to move.
	Revealed *page.Direction `json:"revealed,omitempty"`
	Over     bool            `json:"over"`
}

func viewOf(c *Combatant) CombatantView {
	return CombatantView{
		Name:    c.Name,
		Faction: c.Faction,
		Health:  c.Health,
		Band:    HealthBand(c.Health),
	}
}

// Snapshot returns a copy of the machine state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		ID:        m.id,
		Host:      viewOf(m.sides[m.host].combatant),
		Guest:     viewOf(m.sides[m.host.Opposing()].combatant),
		Joined:    m.joined,
		Page:      m.sides[m.host].page.Number,
		LostState: m.inLostState(),
		Turn:      m.turn,
		Pending:   make(map[page.Faction]bool, 2),
		Decided:   make(map[page.Faction]bool, 2),
		Over:      m.over,
	}
	for _, f := range page.Factions {
		snap.Pending[f] = m.pending[f] != nil
		snap.Decided[f] = m.decisions[f] != nil
	}
	if m.tail != nil {
		snap.Tailing = m.tail.tailer
		snap.TailedPage = m.tail.tailedPage.Number
	}
	if m.revealed != nil {
		dir := *m.revealed
		snap.Revealed = &dir
	}
	return snap
}
