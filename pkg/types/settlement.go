package types

import "github.com/DoyleJ11/mahjong-settlement/internal/engine"

// Points are exact decimals internally; the wire carries them as numbers
// with at most one fractional digit.

type PlayerBalanceView struct {
	PlayerID      string  `json:"player_id"`
	DisplayName   string  `json:"display_name"`
	MahjongPoints float64 `json:"mahjong_points"`
	MahjongYen    int64   `json:"mahjong_yen"`
	ChipYen       int64   `json:"chip_yen"`
	ExpenseYen    int64   `json:"expense_yen"`
	TotalYen      int64   `json:"total_yen"`
}

type TransferView struct {
	FromPlayerID string `json:"from_player_id"`
	FromName     string `json:"from_name"`
	ToPlayerID   string `json:"to_player_id"`
	ToName       string `json:"to_name"`
	Amount       int64  `json:"amount"`
}

type PlayerResultView struct {
	PlayerID            string  `json:"player_id"`
	Rank                int     `json:"rank"`
	RawScore            int64   `json:"raw_score"`
	Points              float64 `json:"points"`
	IsBusted            bool    `json:"is_busted"`
	BustPointAdjustment int64   `json:"bust_point_adjustment,omitempty"`
}

type BustEventView struct {
	RoundID          string `json:"round_id"`
	BustedPlayerID   string `json:"busted_player_id"`
	ReceiverPlayerID string `json:"receiver_player_id"`
	BonusChips       int64  `json:"bonus_chips"`
}

type RoundResultView struct {
	RoundID     string             `json:"round_id"`
	Seq         int                `json:"seq"`
	IsConfirmed bool               `json:"is_confirmed"`
	ScoreSum    int64              `json:"score_sum"`
	ExpectedSum int64              `json:"expected_sum"`
	Players     []PlayerResultView `json:"players"`
}

type SettlementView struct {
	HasUnconfirmed bool                `json:"has_unconfirmed"`
	Balances       []PlayerBalanceView `json:"balances"`
	Transfers      []TransferView      `json:"transfers"`
	Rounds         []RoundResultView   `json:"rounds"`
	BustEvents     []BustEventView     `json:"bust_events"`
}

func FromSettlement(s engine.Settlement) SettlementView {
	v := SettlementView{
		HasUnconfirmed: s.HasUnconfirmed,
		Balances:       make([]PlayerBalanceView, 0, len(s.Balances)),
		Transfers:      make([]TransferView, 0, len(s.Transfers)),
		Rounds:         make([]RoundResultView, 0, len(s.Rounds)),
		BustEvents:     make([]BustEventView, 0, len(s.BustEvents)),
	}
	for _, b := range s.Balances {
		v.Balances = append(v.Balances, PlayerBalanceView{
			PlayerID:      b.PlayerID,
			DisplayName:   b.DisplayName,
			MahjongPoints: b.MahjongPoints.InexactFloat64(),
			MahjongYen:    b.MahjongYen,
			ChipYen:       b.ChipYen,
			ExpenseYen:    b.ExpenseYen,
			TotalYen:      b.TotalYen,
		})
	}
	for _, t := range s.Transfers {
		v.Transfers = append(v.Transfers, TransferView(t))
	}
	for _, r := range s.Rounds {
		rv := RoundResultView{
			RoundID:     r.RoundID,
			Seq:         r.Seq,
			IsConfirmed: r.IsConfirmed,
			ScoreSum:    r.ScoreSum,
			ExpectedSum: r.ExpectedSum,
			Players:     make([]PlayerResultView, 0, len(r.Players)),
		}
		for _, p := range r.Players {
			rv.Players = append(rv.Players, PlayerResultView{
				PlayerID:            p.PlayerID,
				Rank:                p.Rank,
				RawScore:            p.RawScore,
				Points:              p.Points.InexactFloat64(),
				IsBusted:            p.IsBusted,
				BustPointAdjustment: p.BustPointAdjustment,
			})
		}
		v.Rounds = append(v.Rounds, rv)
	}
	for _, e := range s.BustEvents {
		v.BustEvents = append(v.BustEvents, BustEventView(e))
	}
	return v
}
