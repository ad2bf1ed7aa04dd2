package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type RoundScore struct {
	PlayerID string
	RawScore int64
}

// Round is one hanchan as stored: the active players' raw scores plus the
// optional busted -> buster assignment.
type Round struct {
	ID      string
	Seq     int
	Scores  []RoundScore
	Busters map[string]string
}

type PlayerBalance struct {
	PlayerID      string
	DisplayName   string
	MahjongPoints decimal.Decimal
	MahjongYen    int64
	ChipYen       int64
	ExpenseYen    int64
	TotalYen      int64
}

type Settlement struct {
	HasUnconfirmed bool
	// Balances follows roster order.
	Balances  []PlayerBalance
	Transfers []Transfer
	// Rounds holds every round result in seq order, confirmed or not.
	Rounds []RoundResult
	// BustEvents come from confirmed rounds only.
	BustEvents []BustEvent
}

// Balance returns the balance for a player id.
func (s Settlement) Balance(id string) (PlayerBalance, bool) {
	for _, b := range s.Balances {
		if b.PlayerID == id {
			return b, true
		}
	}
	return PlayerBalance{}, false
}

// ComputeSettlement evaluates every round, sums points from confirmed rounds,
// converts them to currency once per player, adds chips and expenses and
// derives transfers. Errors are only returned for inconsistent input.
func ComputeSettlement(rounds []Round, expenses []Expense, players []Player, rules Rules) (Settlement, error) {
	if err := rules.Validate(); err != nil {
		return Settlement{}, err
	}

	seats := make(map[string]int, len(players))
	playerIDs := make([]string, 0, len(players))
	for _, p := range players {
		seats[p.ID] = p.SeatOrder
		playerIDs = append(playerIDs, p.ID)
	}
	if err := checkReferences(rounds, expenses, seats); err != nil {
		return Settlement{}, err
	}

	ordered := slices.Clone(rounds)
	slices.SortStableFunc(ordered, func(a, b Round) int { return cmp.Compare(a.Seq, b.Seq) })

	out := Settlement{
		Rounds:     make([]RoundResult, 0, len(ordered)),
		BustEvents: []BustEvent{},
	}
	points := make(map[string]decimal.Decimal, len(players))

	for _, r := range ordered {
		scores := make([]PlayerScore, len(r.Scores))
		for i, s := range r.Scores {
			scores[i] = PlayerScore{PlayerID: s.PlayerID, SeatOrder: seats[s.PlayerID], RawScore: s.RawScore}
		}
		res, err := evaluateRound(r.ID, r.Seq, scores, rules, r.Busters)
		if err != nil {
			return Settlement{}, err
		}
		out.Rounds = append(out.Rounds, res)

		// Exclusion is per round: nobody collects from an unconfirmed one.
		if !res.IsConfirmed {
			out.HasUnconfirmed = true
			continue
		}
		for _, pr := range res.Players {
			points[pr.PlayerID] = points[pr.PlayerID].Add(pr.Points)
		}
		out.BustEvents = append(out.BustEvents, res.BustEvents...)
	}

	chips := ComputeChipBalances(players, rules.StartingChipCount, rules.ChipUnitValue)
	spent := ComputeExpenseBalances(expenses, playerIDs)
	rate := decimal.NewFromInt(rules.CurrencyRate)

	out.Balances = make([]PlayerBalance, 0, len(players))
	totals := make([]Balance, 0, len(players))
	for _, p := range players {
		name := p.DisplayName
		if name == "" {
			name = UnknownName
		}
		pb := PlayerBalance{
			PlayerID:      p.ID,
			DisplayName:   name,
			MahjongPoints: points[p.ID],
			MahjongYen:    RoundToUnit(points[p.ID].Mul(rate), rules.RoundingUnit),
			ChipYen:       chips[p.ID],
			ExpenseYen:    spent[p.ID],
		}
		pb.TotalYen = pb.MahjongYen + pb.ChipYen + pb.ExpenseYen
		out.Balances = append(out.Balances, pb)
		totals = append(totals, Balance{PlayerID: p.ID, Amount: pb.TotalYen})
	}

	out.Transfers = ComputeTransfers(totals, players)
	return out, nil
}

func checkReferences(rounds []Round, expenses []Expense, seats map[string]int) error {
	known := func(id string) bool {
		_, ok := seats[id]
		return ok
	}
	for _, r := range rounds {
		for _, s := range r.Scores {
			if !known(s.PlayerID) {
				return fmt.Errorf("%w %s in round %s", ErrUnknownPlayer, s.PlayerID, r.ID)
			}
		}
		for busted, buster := range r.Busters {
			if !known(busted) || !known(buster) {
				return fmt.Errorf("%w in bust assignment %s -> %s of round %s", ErrUnknownPlayer, busted, buster, r.ID)
			}
		}
	}
	for _, e := range expenses {
		if !known(e.PayerID) {
			return fmt.Errorf("%w %s paying expense %s", ErrUnknownPlayer, e.PayerID, e.ID)
		}
		if e.AllMembers {
			continue
		}
		for _, t := range e.TargetIDs {
			if !known(t) {
				return fmt.Errorf("%w %s sharing expense %s", ErrUnknownPlayer, t, e.ID)
			}
		}
	}
	return nil
}
