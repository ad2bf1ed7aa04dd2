package engine

import "github.com/shopspring/decimal"

var half = decimal.NewFromFloat(0.5)

// RoundToUnit rounds value to the nearest multiple of unit. Halves go toward
// +infinity, so -1250 at unit 100 becomes -1200. A unit of 1 or less rounds
// to the nearest integer.
func RoundToUnit(value decimal.Decimal, unit int64) int64 {
	if unit <= 1 {
		return roundHalfUp(value).IntPart()
	}
	u := decimal.NewFromInt(unit)
	return roundHalfUp(value.Div(u)).Mul(u).IntPart()
}

func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}
