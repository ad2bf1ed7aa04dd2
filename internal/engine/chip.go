package engine

import "database/sql"

type Player struct {
	ID          string
	DisplayName string
	SeatOrder   int
	// ChipCount is the ending chip count; invalid means not entered yet.
	ChipCount sql.Null[int64]
}

// ChipCountOf is a convenience for building an entered chip count.
func ChipCountOf(n int64) sql.Null[int64] {
	return sql.Null[int64]{V: n, Valid: true}
}

// ComputeChipBalances converts each player's chip change into currency.
// Players without an entered count get 0. It does not check that chips were
// conserved across the table.
func ComputeChipBalances(players []Player, startingChips, chipUnitValue int64) map[string]int64 {
	balance := make(map[string]int64, len(players))
	for _, p := range players {
		if !p.ChipCount.Valid {
			balance[p.ID] = 0
			continue
		}
		balance[p.ID] = (p.ChipCount.V - startingChips) * chipUnitValue
	}
	return balance
}
