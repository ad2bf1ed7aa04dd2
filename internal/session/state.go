package session

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
)

// Round is a stored hanchan plus the revision used to guard score edits.
type Round struct {
	engine.Round
	Revision int
}

// State is the full snapshot of one scoring session.
type State struct {
	Name     string
	Rules    engine.Rules
	Players  []engine.Player
	Rounds   []Round
	Expenses []engine.Expense
}

func NewState(name string, rules engine.Rules) State {
	return State{
		Name:     name,
		Rules:    rules,
		Players:  []engine.Player{},
		Rounds:   []Round{},
		Expenses: []engine.Expense{},
	}
}

// Clone deep-copies the state so snapshots handed to subscribers are never
// mutated afterwards.
func (s State) Clone() State {
	c := s
	c.Rules.PlacementBonus = slices.Clone(s.Rules.PlacementBonus)
	c.Players = slices.Clone(s.Players)
	c.Rounds = make([]Round, len(s.Rounds))
	for i, r := range s.Rounds {
		r.Scores = slices.Clone(r.Scores)
		r.Busters = maps.Clone(r.Busters)
		c.Rounds[i] = r
	}
	c.Expenses = make([]engine.Expense, len(s.Expenses))
	for i, e := range s.Expenses {
		e.TargetIDs = slices.Clone(e.TargetIDs)
		c.Expenses[i] = e
	}
	return c
}

// Settlement recomputes everything from this snapshot.
func (s State) Settlement() (engine.Settlement, error) {
	rounds := make([]engine.Round, len(s.Rounds))
	for i, r := range s.Rounds {
		rounds[i] = r.Round
	}
	return engine.ComputeSettlement(rounds, s.Expenses, s.Players, s.Rules)
}

func (s State) player(id string) (int, bool) {
	i := slices.IndexFunc(s.Players, func(p engine.Player) bool { return p.ID == id })
	return i, i >= 0
}

func (s State) round(id string) (int, bool) {
	i := slices.IndexFunc(s.Rounds, func(r Round) bool { return r.ID == id })
	return i, i >= 0
}

func (s State) expense(id string) (int, bool) {
	i := slices.IndexFunc(s.Expenses, func(e engine.Expense) bool { return e.ID == id })
	return i, i >= 0
}

func (s State) nextSeat() int {
	seat := 0
	for _, p := range s.Players {
		seat = max(seat, p.SeatOrder)
	}
	return seat + 1
}

func (s State) nextSeq() int {
	seq := 0
	for _, r := range s.Rounds {
		seq = max(seq, r.Seq)
	}
	return seq + 1
}

// tablePlayers returns the first PlayerCount players by seat order.
func (s State) tablePlayers() []string {
	sorted := slices.Clone(s.Players)
	slices.SortStableFunc(sorted, func(a, b engine.Player) int { return a.SeatOrder - b.SeatOrder })
	ids := make([]string, 0, s.Rules.PlayerCount)
	for _, p := range sorted {
		if len(ids) == s.Rules.PlayerCount {
			break
		}
		ids = append(ids, p.ID)
	}
	return ids
}
