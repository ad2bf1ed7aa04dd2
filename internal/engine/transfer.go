package engine

import (
	"cmp"
	"slices"
)

// UnknownName stands in for a player missing from the display lookup.
const UnknownName = "?"

type Balance struct {
	PlayerID string
	Amount   int64 // positive is owed money, negative owes money
}

type Transfer struct {
	FromPlayerID string
	FromName     string
	ToPlayerID   string
	ToName       string
	Amount       int64
}

// ComputeTransfers matches the largest remaining payer against the largest
// remaining receiver until one side runs out. This is a greedy heuristic: it
// yields at most n-1 transfers but is not guaranteed minimal for every input.
func ComputeTransfers(balances []Balance, players []Player) []Transfer {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.DisplayName
	}
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return UnknownName
	}

	var payers, receivers []Balance
	for _, b := range balances {
		switch {
		case b.Amount < 0:
			payers = append(payers, Balance{PlayerID: b.PlayerID, Amount: -b.Amount})
		case b.Amount > 0:
			receivers = append(receivers, b)
		}
	}
	byAmountDesc := func(a, b Balance) int { return cmp.Compare(b.Amount, a.Amount) }
	slices.SortStableFunc(payers, byAmountDesc)
	slices.SortStableFunc(receivers, byAmountDesc)

	transfers := []Transfer{}
	pi, ri := 0, 0
	for pi < len(payers) && ri < len(receivers) {
		payer := &payers[pi]
		receiver := &receivers[ri]
		amount := min(payer.Amount, receiver.Amount)

		if amount > 0 {
			transfers = append(transfers, Transfer{
				FromPlayerID: payer.PlayerID,
				FromName:     name(payer.PlayerID),
				ToPlayerID:   receiver.PlayerID,
				ToName:       name(receiver.PlayerID),
				Amount:       amount,
			})
		}

		payer.Amount -= amount
		receiver.Amount -= amount
		if payer.Amount == 0 {
			pi++
		}
		if receiver.Amount == 0 {
			ri++
		}
	}
	return transfers
}
