package game

import (
	"fmt"
	"strings"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/page"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const statusTemplate = `You are on page %d, %s (%s).

You have %.1f health: %s.

Your enemy is at %s distance.
You are %stailing your enemy.
You are %sfiring at your enemy.
Your enemy is %sfiring at you.`

var titleCase = cases.Title(language.English)

// FactionName returns the display name of a faction.
func FactionName(f page.Faction) string {
	return titleCase.String(string(f))
}

// Status renders the situation of the named participant.
func (m *Machine) Status(participant string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	participant = strings.TrimSpace(participant)
	for _, f := range page.Factions {
		s := m.sides[f]
		if participant == "" || s.combatant.Name != participant {
			continue
		}
		return renderStatus(s), nil
	}
	return "", apperrors.New(apperrors.CodeNotAParticipant, "%q is not playing game %s", participant, m.id)
}

func renderStatus(s *side) string {
	not := func(b bool) string {
		if b {
			return ""
		}
		return "not "
	}
	p := s.page
	firingOut := p.Fire == page.FireOut || p.Fire == page.FireMutual
	firingIn := p.Fire == page.FireIn || p.Fire == page.FireMutual

	text := fmt.Sprintf(statusTemplate,
		p.Number,
		s.combatant.Name,
		FactionName(s.combatant.Faction),
		s.combatant.Health,
		HealthBand(s.combatant.Health),
		p.Distance,
		not(p.Tail),
		not(firingOut),
		not(firingIn),
	)
	if p.IsSentinel() {
		text += "\n\nYou have lost sight of your enemy. Chase or flee?"
	}
	return text
}
