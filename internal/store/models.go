package store

import (
	"time"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

type sessionRow struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"size:16;uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	Version   int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type ruleSetRow struct {
	ID                 uint `gorm:"primaryKey"`
	SessionID          uint `gorm:"uniqueIndex;not null"`
	PlayerCount        int
	StartingPoints     int64
	ReturnPoints       int64
	Uma1               int64
	Uma2               int64
	Uma3               int64
	Uma4               int64
	BasePotMode        string `gorm:"size:32"`
	CurrencyRate       int64
	RoundingUnit       int64
	ChipUnitValue      int64
	StartingChipCount  int64
	BustBonusEnabled   bool
	BustBonusPoints    int64
	BustBonusChips     int64
	BustReceiverPolicy string `gorm:"size:16"`
	Revision           int
}

func (ruleSetRow) TableName() string { return "rule_sets" }

type playerRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	SessionID   uint   `gorm:"index;not null"`
	Position    int
	DisplayName string
	SeatOrder   int
	ChipCount   *int64
}

func (playerRow) TableName() string { return "session_players" }

type roundRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	SessionID uint   `gorm:"index;not null"`
	Position  int
	Seq       int
	Revision  int
}

func (roundRow) TableName() string { return "rounds" }

type roundResultRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"index;not null"`
	RoundID   string `gorm:"size:36;index;not null"`
	Position  int
	PlayerID  string `gorm:"size:36"`
	RawScore  int64
	BustedBy  *string `gorm:"size:36"`
}

func (roundResultRow) TableName() string { return "round_results" }

type expenseRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	SessionID   uint   `gorm:"index;not null"`
	Position    int
	PayerID     string `gorm:"size:36"`
	Amount      int64
	Description string
	AllMembers  bool
}

func (expenseRow) TableName() string { return "expenses" }

type expenseShareRow struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID uint   `gorm:"index;not null"`
	ExpenseID string `gorm:"size:36;index;not null"`
	Position  int
	PlayerID  string `gorm:"size:36"`
}

func (expenseShareRow) TableName() string { return "expense_shares" }

var allModels = []any{
	&sessionRow{}, &ruleSetRow{}, &playerRow{}, &roundRow{},
	&roundResultRow{}, &expenseRow{}, &expenseShareRow{},
}

func rulesToRow(sessionID uint, r engine.Rules) ruleSetRow {
	uma := make([]int64, 4)
	copy(uma, r.PlacementBonus)
	return ruleSetRow{
		SessionID:          sessionID,
		PlayerCount:        r.PlayerCount,
		StartingPoints:     r.StartingPoints,
		ReturnPoints:       r.ReturnPoints,
		Uma1:               uma[0],
		Uma2:               uma[1],
		Uma3:               uma[2],
		Uma4:               uma[3],
		BasePotMode:        string(r.BasePotMode),
		CurrencyRate:       r.CurrencyRate,
		RoundingUnit:       r.RoundingUnit,
		ChipUnitValue:      r.ChipUnitValue,
		StartingChipCount:  r.StartingChipCount,
		BustBonusEnabled:   r.BustBonus.Enabled,
		BustBonusPoints:    r.BustBonus.BonusPoints,
		BustBonusChips:     r.BustBonus.BonusChips,
		BustReceiverPolicy: string(r.BustBonus.ReceiverPolicy),
		Revision:           r.Revision,
	}
}

func rulesFromRow(row ruleSetRow) engine.Rules {
	uma := []int64{row.Uma1, row.Uma2, row.Uma3, row.Uma4}
	return engine.Rules{
		PlayerCount:       row.PlayerCount,
		StartingPoints:    row.StartingPoints,
		ReturnPoints:      row.ReturnPoints,
		PlacementBonus:    uma[:max(row.PlayerCount, 0):4],
		BasePotMode:       engine.BasePotMode(row.BasePotMode),
		CurrencyRate:      row.CurrencyRate,
		RoundingUnit:      row.RoundingUnit,
		ChipUnitValue:     row.ChipUnitValue,
		StartingChipCount: row.StartingChipCount,
		BustBonus: engine.BustBonus{
			Enabled:        row.BustBonusEnabled,
			BonusPoints:    row.BustBonusPoints,
			BonusChips:     row.BustBonusChips,
			ReceiverPolicy: engine.ReceiverPolicy(row.BustReceiverPolicy),
		},
		Revision: row.Revision,
	}
}

// childRows is one snapshot flattened into table rows for a session id.
type childRows struct {
	rules    ruleSetRow
	players  []playerRow
	rounds   []roundRow
	results  []roundResultRow
	expenses []expenseRow
	shares   []expenseShareRow
}

func toRows(sessionID uint, s session.State) childRows {
	out := childRows{rules: rulesToRow(sessionID, s.Rules)}
	for i, p := range s.Players {
		row := playerRow{ID: p.ID, SessionID: sessionID, Position: i, DisplayName: p.DisplayName, SeatOrder: p.SeatOrder}
		if p.ChipCount.Valid {
			n := p.ChipCount.V
			row.ChipCount = &n
		}
		out.players = append(out.players, row)
	}
	for i, r := range s.Rounds {
		out.rounds = append(out.rounds, roundRow{ID: r.ID, SessionID: sessionID, Position: i, Seq: r.Seq, Revision: r.Revision})
		for j, sc := range r.Scores {
			res := roundResultRow{SessionID: sessionID, RoundID: r.ID, Position: j, PlayerID: sc.PlayerID, RawScore: sc.RawScore}
			if buster, ok := r.Busters[sc.PlayerID]; ok {
				res.BustedBy = &buster
			}
			out.results = append(out.results, res)
		}
	}
	for i, e := range s.Expenses {
		out.expenses = append(out.expenses, expenseRow{
			ID: e.ID, SessionID: sessionID, Position: i, PayerID: e.PayerID,
			Amount: e.Amount, Description: e.Description, AllMembers: e.AllMembers,
		})
		for j, id := range e.TargetIDs {
			out.shares = append(out.shares, expenseShareRow{SessionID: sessionID, ExpenseID: e.ID, Position: j, PlayerID: id})
		}
	}
	return out
}

func fromRows(name string, rows childRows) session.State {
	s := session.NewState(name, rulesFromRow(rows.rules))
	for _, p := range rows.players {
		player := engine.Player{ID: p.ID, DisplayName: p.DisplayName, SeatOrder: p.SeatOrder}
		if p.ChipCount != nil {
			player.ChipCount = engine.ChipCountOf(*p.ChipCount)
		}
		s.Players = append(s.Players, player)
	}

	results := make(map[string][]roundResultRow)
	for _, r := range rows.results {
		results[r.RoundID] = append(results[r.RoundID], r)
	}
	for _, r := range rows.rounds {
		round := session.Round{Round: engine.Round{ID: r.ID, Seq: r.Seq, Busters: map[string]string{}}, Revision: r.Revision}
		for _, res := range results[r.ID] {
			round.Scores = append(round.Scores, engine.RoundScore{PlayerID: res.PlayerID, RawScore: res.RawScore})
			if res.BustedBy != nil {
				round.Busters[res.PlayerID] = *res.BustedBy
			}
		}
		s.Rounds = append(s.Rounds, round)
	}

	shares := make(map[string][]string)
	for _, sh := range rows.shares {
		shares[sh.ExpenseID] = append(shares[sh.ExpenseID], sh.PlayerID)
	}
	for _, e := range rows.expenses {
		s.Expenses = append(s.Expenses, engine.Expense{
			ID: e.ID, PayerID: e.PayerID, Amount: e.Amount, Description: e.Description,
			AllMembers: e.AllMembers, TargetIDs: shares[e.ID],
		})
	}
	return s
}
