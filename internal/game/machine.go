// Package game resolves turns of a two-player page-driven dogfight.
//
// A Machine owns one game: both combatants, the page each side is on, the
// moves submitted for the current turn and the chase/flee decisions taken
// while the aircraft have lost each other. All mutation happens under the
// machine's mutex, so two sides submitting at the same moment resolve the
// turn exactly once.
package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/aceofaces/aoa-server/internal/errors"
	"github.com/aceofaces/aoa-server/internal/page"
)

// Outcome classifies a submission result.
type Outcome string

const (
	OutcomeWaiting     Outcome = "waiting"
	OutcomeResolved    Outcome = "resolved"
	OutcomeLostContact Outcome = "lost_contact"
	OutcomeVictory     Outcome = "victory"
	OutcomeDraw        Outcome = "draw"
	OutcomeHalfVictory Outcome = "half_victory"
	OutcomeReengaged   Outcome = "reengaged"
)

// Resolution is returned for every accepted submission.
type Resolution struct {
	Outcome Outcome
	Message string
	// Page is the page both sides are on after the submission.
	Page     int
	GameOver bool
	Winner   string
	Loser    string
	// Revealed is the direction of the tailed side's move, reported when
	// the tailed side submits while being tailed.
	Revealed *page.Direction
	Damage   map[page.Faction]float64
	Health   map[page.Faction]float64
}

// Options tune a machine. Zero values select defaults.
type Options struct {
	StartPage      int
	StartingHealth float64
	Damage         DamageTable
	Random         RandomSource
	Flavor         *Flavor
}

func (o Options) withDefaults() Options {
	if o.StartPage == 0 {
		o.StartPage = page.DefaultStartPage
	}
	if o.StartingHealth == 0 {
		o.StartingHealth = StartingHealth
	}
	if o.Damage == (DamageTable{}) {
		o.Damage = DefaultDamageTable()
	}
	if o.Random == nil {
		o.Random = globalRandom{}
	}
	if o.Flavor == nil {
		o.Flavor = DefaultFlavor()
	}
	return o
}

type pendingMove struct {
	index   int
	midPage int
}

type side struct {
	combatant *Combatant
	page      page.Page
}

// tailing is the cached tailing relationship.
type tailing struct {
	tailer     page.Faction
	tailedPage page.Page
}

// Machine is the turn state machine of a single game.
type Machine struct {
	id       string
	provider page.Provider
	opts     Options

	mu        sync.Mutex
	host      page.Faction
	sides     map[page.Faction]*side
	joined    bool
	turn      int
	pending   map[page.Faction]*pendingMove
	decisions map[page.Faction]*Decision
	tail      *tailing
	revealed  *page.Direction
	over      bool
	history   *History
}

// NewMachine creates a game with the host on hostFaction. Both sides start
// on opts.StartPage; the guest seat stays empty until Join.
func NewMachine(id string, provider page.Provider, hostName string, hostFaction page.Faction, opts Options) (*Machine, error) {
	if !hostFaction.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidFaction, "unknown faction %q", hostFaction)
	}
	if strings.TrimSpace(hostName) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "host name is required")
	}

	opts = opts.withDefaults()
	if err := opts.Damage.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, err, "invalid damage table")
	}

	m := &Machine{
		id:        id,
		provider:  provider,
		opts:      opts,
		host:      hostFaction,
		sides:     make(map[page.Faction]*side, 2),
		pending:   map[page.Faction]*pendingMove{page.FactionAllies: nil, page.FactionGerman: nil},
		decisions: map[page.Faction]*Decision{page.FactionAllies: nil, page.FactionGerman: nil},
		history:   NewHistory(id),
	}

	pages, err := m.loadBoth(opts.StartPage)
	if err != nil {
		return nil, fmt.Errorf("load start page: %w", err)
	}

	guest := hostFaction.Opposing()
	m.sides[hostFaction] = &side{combatant: NewCombatant(hostName, hostFaction, opts.StartingHealth), page: pages[hostFaction]}
	m.sides[guest] = &side{combatant: NewCombatant("", guest, opts.StartingHealth), page: pages[guest]}
	m.refreshTailing()

	return m, nil
}

// ID returns the game identifier.
func (m *Machine) ID() string {
	return m.id
}

// HostFaction returns the faction of the side that created the game.
func (m *Machine) HostFaction() page.Faction {
	return m.host
}

// Join seats the guest on the faction opposing the host.
func (m *Machine) Join(guestName string) (page.Faction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	guestName = strings.TrimSpace(guestName)
	if guestName == "" {
		return "", apperrors.New(apperrors.CodeInvalidInput, "player name is required")
	}
	if m.joined {
		return "", apperrors.New(apperrors.CodeGameFull, "game %s is already full", m.id)
	}
	if guestName == m.sides[m.host].combatant.Name {
		return "", apperrors.New(apperrors.CodeInvalidInput, "name %q is already taken in this game", guestName)
	}

	guest := m.host.Opposing()
	m.sides[guest].combatant.Name = guestName
	m.joined = true
	return guest, nil
}

// Joined reports whether both seats are filled.
func (m *Machine) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined
}

// InLostState reports whether both sides are on the sentinel page.
func (m *Machine) InLostState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inLostState()
}

func (m *Machine) inLostState() bool {
	for _, s := range m.sides {
		if !s.page.IsSentinel() {
			return false
		}
	}
	return true
}

// checkSubmitter runs the checks shared by move and decision submission.
func (m *Machine) checkSubmitter(faction page.Faction) error {
	if m.over {
		return apperrors.New(apperrors.CodeWrongState, "game %s is over", m.id)
	}
	if _, ok := m.sides[faction]; !ok {
		return apperrors.New(apperrors.CodeNotAParticipant, "faction %q is not part of game %s", faction, m.id)
	}
	if !m.joined {
		return apperrors.New(apperrors.CodeWrongState, "game %s is waiting for an opponent to join", m.id)
	}
	return nil
}

// SubmitMove records a side's move for the current turn and resolves the
// turn once both sides have moved. Rejected submissions leave the machine
// untouched.
func (m *Machine) SubmitMove(faction page.Faction, moveIndex int) (Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkSubmitter(faction); err != nil {
		return Resolution{}, err
	}
	if m.inLostState() {
		return Resolution{}, apperrors.New(apperrors.CodeWrongState,
			"the aircraft lost each other: submit a chase or flee decision instead of a move")
	}

	opponent := faction.Opposing()
	if m.tail != nil && m.tail.tailer == faction && m.pending[opponent] == nil {
		return Resolution{}, apperrors.New(apperrors.CodeOutOfTurn,
			"%s is tailing and must wait for %s to move first", faction, opponent)
	}

	current := m.sides[faction].page
	move, err := current.Move(moveIndex)
	if err != nil {
		return Resolution{}, err
	}
	if !move.Available() {
		return Resolution{}, apperrors.New(apperrors.CodeInvalidMove,
			"move %d (%s) is not available on page %d", moveIndex, move.Name, current.Number)
	}

	m.pending[faction] = &pendingMove{index: moveIndex, midPage: move.NextPage}

	var revealed *page.Direction
	if m.tail != nil && m.tail.tailer == opponent {
		dir := move.Direction
		revealed = &dir
		m.revealed = &dir
	}

	if m.pending[opponent] == nil {
		return Resolution{
			Outcome:  OutcomeWaiting,
			Message:  "Move received. Waiting for your opponent.",
			Page:     current.Number,
			Revealed: revealed,
		}, nil
	}

	res, err := m.resolveTurn()
	m.pending[page.FactionAllies] = nil
	m.pending[page.FactionGerman] = nil
	m.revealed = nil
	if err != nil {
		return Resolution{}, err
	}
	res.Revealed = revealed
	return res, nil
}

// resolveTurn combines both pending moves into the next page. Nothing is
// committed until both new pages have loaded.
func (m *Machine) resolveTurn() (Resolution, error) {
	subject := m.host
	other := subject.Opposing()
	if m.pending[other].midPage == page.SentinelPage && m.pending[subject].midPage != page.SentinelPage {
		subject, other = other, subject
	}

	result, err := m.provider.FindResult(subject, m.pending[other].midPage, m.pending[subject].index)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve turn %d: %w", m.turn+1, err)
	}
	pages, err := m.loadBoth(result)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve turn %d: %w", m.turn+1, err)
	}

	m.turn++
	for f, p := range pages {
		m.sides[f].page = p
	}
	m.refreshTailing()

	rec := TurnRecord{
		Turn:     m.turn,
		Moves:    make(map[page.Faction]int, 2),
		MidPages: make(map[page.Faction]int, 2),
		Page:     result,
		At:       time.Now(),
	}
	for f, pm := range m.pending {
		rec.Moves[f] = pm.index
		rec.MidPages[f] = pm.midPage
	}

	var res Resolution
	if result == page.SentinelPage {
		m.clearDecisions()
		res = Resolution{
			Outcome: OutcomeLostContact,
			Message: "The aircraft have lost each other. Choose to chase or flee.",
			Page:    result,
		}
	} else {
		res = m.applyDamage(pages, subject)
	}
	res.Health = m.healthByFaction()

	rec.Outcome = res.Outcome
	rec.Damage = res.Damage
	rec.Health = res.Health
	rec.Message = res.Message
	m.history.Record(rec)

	return res, nil
}

// applyDamage runs the damage model over the new pages, scaled by the
// subject's distance, and checks for the end of the game.
func (m *Machine) applyDamage(pages map[page.Faction]page.Page, subject page.Faction) Resolution {
	hostSide := m.sides[m.host]
	guestSide := m.sides[m.host.Opposing()]

	toHost, toGuest := m.opts.Damage.Exchange(pages[m.host], pages[m.host.Opposing()], pages[subject].Distance)
	hostSide.combatant.ApplyDamage(toHost)
	guestSide.combatant.ApplyDamage(toGuest)

	res := Resolution{
		Page: hostSide.page.Number,
		Damage: map[page.Faction]float64{
			m.host:            toHost,
			m.host.Opposing(): toGuest,
		},
	}

	hostAlive, guestAlive := hostSide.combatant.IsAlive(), guestSide.combatant.IsAlive()
	switch {
	case !hostAlive && !guestAlive:
		res.Outcome = OutcomeDraw
		res.Message = "Both aircraft go down together. The engagement ends in a draw."
		res.GameOver = true
	case !hostAlive || !guestAlive:
		winner, loser := hostSide.combatant, guestSide.combatant
		if !hostAlive {
			winner, loser = loser, winner
		}
		res.Outcome = OutcomeVictory
		res.Winner = winner.Name
		res.Loser = loser.Name
		res.Message = m.opts.Flavor.Victory(m.opts.Random, winner.Name, loser.Name)
		res.GameOver = true
	default:
		res.Outcome = OutcomeResolved
		res.Message = fmt.Sprintf("Turn %d resolved. Both sides turn to page %d.", m.turn, res.Page)
	}

	if res.GameOver {
		m.over = true
	}
	return res
}

// CurrentPage returns the page number both sides are on. Sides on
// different pages end the game.
func (m *Machine) CurrentPage() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hostPage := m.sides[m.host].page.Number
	guestPage := m.sides[m.host.Opposing()].page.Number
	if hostPage != guestPage {
		m.over = true
		return 0, apperrors.New(apperrors.CodeInconsistentState,
			"game %s: sides diverged onto pages %d and %d", m.id, hostPage, guestPage)
	}
	return hostPage, nil
}

// History returns the resolutions recorded so far.
func (m *Machine) History() *History {
	return m.history
}

// Over reports whether the game has ended.
func (m *Machine) Over() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.over
}

func (m *Machine) loadBoth(number int) (map[page.Faction]page.Page, error) {
	pages := make(map[page.Faction]page.Page, len(page.Factions))
	for _, f := range page.Factions {
		p, err := m.provider.LoadPage(f, number)
		if err != nil {
			return nil, err
		}
		pages[f] = p
	}
	return pages, nil
}

// refreshTailing recomputes the tailing relationship from the current
// pages. When both pages claim the tail nobody is treated as tailing.
func (m *Machine) refreshTailing() {
	m.tail = nil
	var tailers []page.Faction
	for _, f := range page.Factions {
		if m.sides[f].page.Tail {
			tailers = append(tailers, f)
		}
	}
	if len(tailers) != 1 {
		return
	}
	m.tail = &tailing{
		tailer:     tailers[0],
		tailedPage: m.sides[tailers[0].Opposing()].page,
	}
}

func (m *Machine) clearDecisions() {
	m.decisions[page.FactionAllies] = nil
	m.decisions[page.FactionGerman] = nil
}

func (m *Machine) healthByFaction() map[page.Faction]float64 {
	out := make(map[page.Faction]float64, len(m.sides))
	for f, s := range m.sides {
		out[f] = s.combatant.Health
	}
	return out
}
