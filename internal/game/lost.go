package game

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/page"
)

// Decision is a side's choice once the aircraft have lost each other.
type Decision string

const (
	DecisionChase Decision = "chase"
	DecisionFlee  Decision = "flee"
)

// ParseDecision parses a decision case-insensitively.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionChase:
		return DecisionChase, nil
	case DecisionFlee:
		return DecisionFlee, nil
	default:
		return "", apperrors.New(apperrors.CodeInvalidInput, "unknown decision %q: want chase or flee", s)
	}
}

// SubmitLostDecision records a chase or flee decision and resolves the lost
// state once both sides have decided.
func (m *Machine) SubmitLostDecision(faction page.Faction, decision Decision) (Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkSubmitter(faction); err != nil {
		return Resolution{}, err
	}
	if !m.inLostState() {
		return Resolution{}, apperrors.New(apperrors.CodeWrongState,
			"the aircraft are still in contact: submit a move instead of a decision")
	}
	if decision != DecisionChase && decision != DecisionFlee {
		return Resolution{}, apperrors.New(apperrors.CodeInvalidInput, "unknown decision %q", decision)
	}

	d := decision
	m.decisions[faction] = &d

	if m.decisions[faction.Opposing()] == nil {
		return Resolution{
			Outcome: OutcomeWaiting,
			Message: "Decision received. Waiting for your opponent.",
			Page:    page.SentinelPage,
		}, nil
	}

	res, err := m.resolveLost()
	m.clearDecisions()
	if err != nil {
		return Resolution{}, err
	}
	return res, nil
}

// resolveLost applies the chase/flee table. It is symmetric in the two
// sides.
func (m *Machine) resolveLost() (Resolution, error) {
	a := m.sides[m.host].combatant
	b := m.sides[m.host.Opposing()].combatant
	da := *m.decisions[a.Faction]
	db := *m.decisions[b.Faction]

	rec := TurnRecord{
		Turn:      m.turn + 1,
		Decisions: map[page.Faction]Decision{a.Faction: da, b.Faction: db},
		At:        time.Now(),
	}

	var res Resolution
	switch {
	case da == DecisionFlee && db == DecisionFlee:
		res = Resolution{
			Outcome:  OutcomeDraw,
			Message:  "Both pilots break off and head for home. The engagement ends in a draw.",
			Page:     page.SentinelPage,
			GameOver: true,
		}
	case da == DecisionChase && db == DecisionChase:
		pages, err := m.loadBoth(m.opts.StartPage)
		if err != nil {
			return Resolution{}, fmt.Errorf("reset to start page: %w", err)
		}
		for f, p := range pages {
			m.sides[f].page = p
		}
		m.refreshTailing()
		res = Resolution{
			Outcome: OutcomeReengaged,
			Message: fmt.Sprintf("Both pilots turn back to hunt. The dogfight resumes on page %d.", m.opts.StartPage),
			Page:    m.opts.StartPage,
		}
	default:
		chaser, fleer := a, b
		if da == DecisionFlee {
			chaser, fleer = b, a
		}
		res = Resolution{
			Outcome:  OutcomeHalfVictory,
			Message:  fmt.Sprintf("%s flees the field and %s holds the sky: a half victory for %s.", fleer.Name, chaser.Name, chaser.Name),
			Page:     page.SentinelPage,
			GameOver: true,
			Winner:   chaser.Name,
			Loser:    fleer.Name,
		}
	}

	m.turn++
	if res.GameOver {
		m.over = true
	}
	res.Health = m.healthByFaction()

	rec.Outcome = res.Outcome
	rec.Page = res.Page
	rec.Health = res.Health
	rec.Message = res.Message
	m.history.Record(rec)

	return res, nil
}
