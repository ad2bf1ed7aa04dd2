package engine

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var ErrInvalidRules = errors.New("invalid rules")
var ErrUnknownPlayer = errors.New("unknown player")

type BasePotMode string

const (
	BasePotWinnerTakeAll BasePotMode = "winner_take_all"
	BasePotNone          BasePotMode = "none"
)

type ReceiverPolicy string

const (
	ReceiverTop    ReceiverPolicy = "top"
	ReceiverManual ReceiverPolicy = "manual"
)

type BustBonus struct {
	Enabled        bool
	BonusPoints    int64 // thousands of points
	BonusChips     int64
	ReceiverPolicy ReceiverPolicy
}

// Rules is the per-session rule configuration. Revision is bumped by the
// session layer on every accepted edit and is ignored by the calculators.
type Rules struct {
	PlayerCount       int
	StartingPoints    int64
	ReturnPoints      int64
	PlacementBonus    []int64 // thousands of points, index 0 = rank 1
	BasePotMode       BasePotMode
	CurrencyRate      int64 // yen per 1000 points
	RoundingUnit      int64
	ChipUnitValue     int64
	StartingChipCount int64
	BustBonus         BustBonus
	Revision          int
}

func DefaultRules() Rules {
	return Rules{
		PlayerCount:       4,
		StartingPoints:    25000,
		ReturnPoints:      30000,
		PlacementBonus:    []int64{10, 5, -5, -10},
		BasePotMode:       BasePotWinnerTakeAll,
		CurrencyRate:      100,
		RoundingUnit:      100,
		ChipUnitValue:     500,
		StartingChipCount: 0,
		BustBonus:         BustBonus{ReceiverPolicy: ReceiverTop},
	}
}

// Validate reports every violation at once, wrapped in ErrInvalidRules.
func (r Rules) Validate() error {
	var err error
	if r.PlayerCount != 3 && r.PlayerCount != 4 {
		err = multierr.Append(err, fmt.Errorf("player count must be 3 or 4, got %d", r.PlayerCount))
	}
	if r.PlayerCount > 0 && len(r.PlacementBonus) < r.PlayerCount {
		err = multierr.Append(err, fmt.Errorf("placement bonus needs %d entries, got %d", r.PlayerCount, len(r.PlacementBonus)))
	}
	if r.StartingPoints <= 0 {
		err = multierr.Append(err, fmt.Errorf("starting points must be positive, got %d", r.StartingPoints))
	}
	if r.ReturnPoints < 0 {
		err = multierr.Append(err, fmt.Errorf("return points must not be negative, got %d", r.ReturnPoints))
	}
	if r.CurrencyRate < 0 {
		err = multierr.Append(err, fmt.Errorf("currency rate must not be negative, got %d", r.CurrencyRate))
	}
	if r.RoundingUnit < 0 {
		err = multierr.Append(err, fmt.Errorf("rounding unit must not be negative, got %d", r.RoundingUnit))
	}
	if r.ChipUnitValue < 0 {
		err = multierr.Append(err, fmt.Errorf("chip unit value must not be negative, got %d", r.ChipUnitValue))
	}
	if r.StartingChipCount < 0 {
		err = multierr.Append(err, fmt.Errorf("starting chip count must not be negative, got %d", r.StartingChipCount))
	}
	switch r.BasePotMode {
	case BasePotWinnerTakeAll, BasePotNone:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown base pot mode %q", r.BasePotMode))
	}
	switch r.BustBonus.ReceiverPolicy {
	case ReceiverTop, ReceiverManual:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown bust receiver policy %q", r.BustBonus.ReceiverPolicy))
	}
	if r.BustBonus.BonusPoints < 0 {
		err = multierr.Append(err, fmt.Errorf("bust bonus points must not be negative, got %d", r.BustBonus.BonusPoints))
	}
	if r.BustBonus.BonusChips < 0 {
		err = multierr.Append(err, fmt.Errorf("bust bonus chips must not be negative, got %d", r.BustBonus.BonusChips))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	return nil
}

// placementBonus returns the bonus in raw points for a 1-based rank.
// Ranks past the configured table get nothing.
func (r Rules) placementBonus(rank int) int64 {
	if rank < 1 || rank > r.PlayerCount || rank > len(r.PlacementBonus) {
		return 0
	}
	return r.PlacementBonus[rank-1] * 1000
}
