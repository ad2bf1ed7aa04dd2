package types

import (
	"maps"
	"slices"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

type BustBonusView struct {
	Enabled        bool   `json:"enabled"`
	BonusPoints    int64  `json:"bonus_points"`
	BonusChips     int64  `json:"bonus_chips"`
	ReceiverPolicy string `json:"receiver_policy"`
}

type RulesView struct {
	PlayerCount       int           `json:"player_count"`
	StartingPoints    int64         `json:"starting_points"`
	ReturnPoints      int64         `json:"return_points"`
	PlacementBonus    []int64       `json:"placement_bonus"`
	BasePotMode       string        `json:"base_pot_mode"`
	CurrencyRate      int64         `json:"currency_rate"`
	RoundingUnit      int64         `json:"rounding_unit"`
	ChipUnitValue     int64         `json:"chip_unit_value"`
	StartingChipCount int64         `json:"starting_chip_count"`
	BustBonus         BustBonusView `json:"bust_bonus"`
	Revision          int           `json:"revision"`
}

type PlayerView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	SeatOrder   int    `json:"seat_order"`
	ChipCount   *int64 `json:"chip_count"` // null until entered
}

type RoundScoreView struct {
	PlayerID string `json:"player_id"`
	RawScore int64  `json:"raw_score"`
}

type RoundView struct {
	ID       string            `json:"id"`
	Seq      int               `json:"seq"`
	Revision int               `json:"revision"`
	Scores   []RoundScoreView  `json:"scores"`
	Busters  map[string]string `json:"busters,omitempty"` // busted -> buster
}

type ExpenseView struct {
	ID          string   `json:"id"`
	PayerID     string   `json:"payer_id"`
	Amount      int64    `json:"amount"`
	Description string   `json:"description"`
	AllMembers  bool     `json:"all_members"`
	TargetIDs   []string `json:"target_ids,omitempty"`
}

// SnapshotInput is everything a settlement is computed from. The CLI reads
// it from disk and SessionView embeds it, so a fetched session can be fed
// straight back into the CLI.
type SnapshotInput struct {
	Name     string        `json:"name"`
	Rules    *RulesView    `json:"rules,omitempty"` // nil means default rules
	Players  []PlayerView  `json:"players"`
	Rounds   []RoundView   `json:"rounds"`
	Expenses []ExpenseView `json:"expenses"`
}

type SessionView struct {
	Code    string `json:"code"`
	Version int    `json:"version"`
	SnapshotInput
	Settlement SettlementView `json:"settlement"`
}

func FromRules(r engine.Rules) RulesView {
	return RulesView{
		PlayerCount:       r.PlayerCount,
		StartingPoints:    r.StartingPoints,
		ReturnPoints:      r.ReturnPoints,
		PlacementBonus:    slices.Clone(r.PlacementBonus),
		BasePotMode:       string(r.BasePotMode),
		CurrencyRate:      r.CurrencyRate,
		RoundingUnit:      r.RoundingUnit,
		ChipUnitValue:     r.ChipUnitValue,
		StartingChipCount: r.StartingChipCount,
		BustBonus: BustBonusView{
			Enabled:        r.BustBonus.Enabled,
			BonusPoints:    r.BustBonus.BonusPoints,
			BonusChips:     r.BustBonus.BonusChips,
			ReceiverPolicy: string(r.BustBonus.ReceiverPolicy),
		},
		Revision: r.Revision,
	}
}

func (v RulesView) Engine() engine.Rules {
	return engine.Rules{
		PlayerCount:       v.PlayerCount,
		StartingPoints:    v.StartingPoints,
		ReturnPoints:      v.ReturnPoints,
		PlacementBonus:    slices.Clone(v.PlacementBonus),
		BasePotMode:       engine.BasePotMode(v.BasePotMode),
		CurrencyRate:      v.CurrencyRate,
		RoundingUnit:      v.RoundingUnit,
		ChipUnitValue:     v.ChipUnitValue,
		StartingChipCount: v.StartingChipCount,
		BustBonus: engine.BustBonus{
			Enabled:        v.BustBonus.Enabled,
			BonusPoints:    v.BustBonus.BonusPoints,
			BonusChips:     v.BustBonus.BonusChips,
			ReceiverPolicy: engine.ReceiverPolicy(v.BustBonus.ReceiverPolicy),
		},
		Revision: v.Revision,
	}
}

func FromState(s session.State) SnapshotInput {
	rules := FromRules(s.Rules)
	in := SnapshotInput{
		Name:     s.Name,
		Rules:    &rules,
		Players:  make([]PlayerView, 0, len(s.Players)),
		Rounds:   make([]RoundView, 0, len(s.Rounds)),
		Expenses: make([]ExpenseView, 0, len(s.Expenses)),
	}
	for _, p := range s.Players {
		pv := PlayerView{ID: p.ID, DisplayName: p.DisplayName, SeatOrder: p.SeatOrder}
		if p.ChipCount.Valid {
			n := p.ChipCount.V
			pv.ChipCount = &n
		}
		in.Players = append(in.Players, pv)
	}
	for _, r := range s.Rounds {
		rv := RoundView{ID: r.ID, Seq: r.Seq, Revision: r.Revision, Busters: maps.Clone(r.Busters)}
		for _, sc := range r.Scores {
			rv.Scores = append(rv.Scores, RoundScoreView{PlayerID: sc.PlayerID, RawScore: sc.RawScore})
		}
		in.Rounds = append(in.Rounds, rv)
	}
	for _, e := range s.Expenses {
		in.Expenses = append(in.Expenses, ExpenseView{
			ID: e.ID, PayerID: e.PayerID, Amount: e.Amount, Description: e.Description,
			AllMembers: e.AllMembers, TargetIDs: slices.Clone(e.TargetIDs),
		})
	}
	return in
}

// State converts the input back into a session snapshot.
func (in SnapshotInput) State() session.State {
	rules := engine.DefaultRules()
	if in.Rules != nil {
		rules = in.Rules.Engine()
	}
	s := session.NewState(in.Name, rules)
	for _, p := range in.Players {
		player := engine.Player{ID: p.ID, DisplayName: p.DisplayName, SeatOrder: p.SeatOrder}
		if p.ChipCount != nil {
			player.ChipCount = engine.ChipCountOf(*p.ChipCount)
		}
		s.Players = append(s.Players, player)
	}
	for _, r := range in.Rounds {
		round := session.Round{
			Round:    engine.Round{ID: r.ID, Seq: r.Seq, Busters: maps.Clone(r.Busters)},
			Revision: r.Revision,
		}
		for _, sc := range r.Scores {
			round.Scores = append(round.Scores, engine.RoundScore{PlayerID: sc.PlayerID, RawScore: sc.RawScore})
		}
		s.Rounds = append(s.Rounds, round)
	}
	for _, e := range in.Expenses {
		s.Expenses = append(s.Expenses, engine.Expense{
			ID: e.ID, PayerID: e.PayerID, Amount: e.Amount, Description: e.Description,
			AllMembers: e.AllMembers, TargetIDs: slices.Clone(e.TargetIDs),
		})
	}
	return s
}

func FromView(code string, v session.View) SessionView {
	return SessionView{
		Code:          code,
		Version:       v.Version,
		SnapshotInput: FromState(v.State),
		Settlement:    FromSettlement(v.Settlement),
	}
}

func FromSnapshot(code string, snap session.Snapshot) SessionView {
	return SessionView{
		Code:          code,
		Version:       snap.Version,
		SnapshotInput: FromState(snap.State),
		Settlement:    FromSettlement(snap.Settlement),
	}
}
