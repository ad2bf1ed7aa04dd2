package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var ErrDuplicateScore = errors.New("duplicate score for player")

type PlayerScore struct {
	PlayerID  string
	SeatOrder int
	RawScore  int64
}

type PlayerResult struct {
	PlayerID       string
	SeatOrder      int
	Rank           int
	RawScore       int64
	PointDiff      int64
	PotAward       int64
	PlacementAward int64
	TotalPoints    int64
	// Points is TotalPoints in thousands plus the bust adjustment.
	Points              decimal.Decimal
	IsBusted            bool
	BustPointAdjustment int64
}

// BustEvent records chips owed for a bust. The engine never moves chips
// itself; players enter final chip counts directly.
type BustEvent struct {
	RoundID          string
	BustedPlayerID   string
	ReceiverPlayerID string
	BonusChips       int64
}

type RoundResult struct {
	RoundID     string
	Seq         int
	IsConfirmed bool
	ScoreSum    int64
	ExpectedSum int64
	// Players is in rank order.
	Players    []PlayerResult
	BustEvents []BustEvent
}

// Player returns the result for id, if it took part in the round.
func (r RoundResult) Player(id string) (PlayerResult, bool) {
	for _, p := range r.Players {
		if p.PlayerID == id {
			return p, true
		}
	}
	return PlayerResult{}, false
}

// EvaluateRound ranks one round and folds in pot, placement and bust
// adjustments. busters maps a busted player to whoever busted them and is
// only read under the manual receiver policy.
func EvaluateRound(roundID string, seq int, scores []PlayerScore, rules Rules, busters map[string]string) (RoundResult, error) {
	if err := rules.Validate(); err != nil {
		return RoundResult{}, err
	}
	return evaluateRound(roundID, seq, scores, rules, busters)
}

func evaluateRound(roundID string, seq int, scores []PlayerScore, rules Rules, busters map[string]string) (RoundResult, error) {
	active := int64(len(scores))
	res := RoundResult{
		RoundID:     roundID,
		Seq:         seq,
		ExpectedSum: rules.StartingPoints * active,
		BustEvents:  []BustEvent{},
	}

	seen := make(map[string]bool, len(scores))
	for _, s := range scores {
		if seen[s.PlayerID] {
			return RoundResult{}, fmt.Errorf("%w %s in round %s", ErrDuplicateScore, s.PlayerID, roundID)
		}
		seen[s.PlayerID] = true
		res.ScoreSum += s.RawScore
	}
	res.IsConfirmed = res.ScoreSum == res.ExpectedSum && len(scores) == rules.PlayerCount

	ranked := rankScores(scores)

	var basePot int64
	if rules.BasePotMode == BasePotWinnerTakeAll {
		basePot = (rules.ReturnPoints - rules.StartingPoints) * active
	}

	// First pass: placement, pot and diff.
	res.Players = make([]PlayerResult, len(ranked))
	for i, s := range ranked {
		rank := i + 1
		pr := PlayerResult{
			PlayerID:       s.PlayerID,
			SeatOrder:      s.SeatOrder,
			Rank:           rank,
			RawScore:       s.RawScore,
			PointDiff:      s.RawScore - rules.ReturnPoints,
			PlacementAward: rules.placementBonus(rank),
			IsBusted:       s.RawScore <= 0,
		}
		if rank == 1 {
			pr.PotAward = basePot
		}
		pr.TotalPoints = pr.PointDiff + pr.PotAward + pr.PlacementAward
		pr.Points = decimal.New(pr.TotalPoints, -3)
		res.Players[i] = pr
	}

	// Second pass: bust bonus moves points from the busted player to the receiver.
	if rules.BustBonus.Enabled {
		applyBustBonus(&res, rules.BustBonus, busters)
	}

	return res, nil
}

func applyBustBonus(res *RoundResult, bonus BustBonus, busters map[string]string) {
	if len(res.Players) == 0 {
		return
	}
	index := make(map[string]int, len(res.Players))
	for i, p := range res.Players {
		index[p.PlayerID] = i
	}
	top := res.Players[0].PlayerID

	for i := range res.Players {
		busted := &res.Players[i]
		if !busted.IsBusted {
			continue
		}

		var receiverID string
		switch bonus.ReceiverPolicy {
		case ReceiverTop:
			receiverID = top
		case ReceiverManual:
			receiverID = busters[busted.PlayerID]
		}
		ri, ok := index[receiverID]
		if !ok || receiverID == busted.PlayerID {
			continue
		}

		if bonus.BonusPoints > 0 {
			receiver := &res.Players[ri]
			busted.BustPointAdjustment -= bonus.BonusPoints
			busted.Points = busted.Points.Sub(decimal.NewFromInt(bonus.BonusPoints))
			receiver.BustPointAdjustment += bonus.BonusPoints
			receiver.Points = receiver.Points.Add(decimal.NewFromInt(bonus.BonusPoints))
		}
		if bonus.BonusChips > 0 {
			res.BustEvents = append(res.BustEvents, BustEvent{
				RoundID:          res.RoundID,
				BustedPlayerID:   busted.PlayerID,
				ReceiverPlayerID: receiverID,
				BonusChips:       bonus.BonusChips,
			})
		}
	}
}

// rankScores orders by raw score descending, lower seat order first on ties.
func rankScores(scores []PlayerScore) []PlayerScore {
	ranked := slices.Clone(scores)
	slices.SortStableFunc(ranked, func(a, b PlayerScore) int {
		if a.RawScore != b.RawScore {
			if a.RawScore > b.RawScore {
				return -1
			}
			return 1
		}
		return a.SeatOrder - b.SeatOrder
	})
	return ranked
}
