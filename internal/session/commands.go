package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
)

var ErrInvalidCommand = errors.New("invalid command")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnknownRound = errors.New("unknown round")
var ErrUnknownExpense = errors.New("unknown expense")
var ErrRevisionConflict = errors.New("revision conflict, reload and retry")
var ErrUnsupportedCommand = errors.New("unsupported command")

type CommandType string

const (
	CmdAddPlayer     CommandType = "AddPlayer"
	CmdRenamePlayer  CommandType = "RenamePlayer"
	CmdSetChipCount  CommandType = "SetChipCount"
	CmdAddRound      CommandType = "AddRound"
	CmdEditScores    CommandType = "EditScores"
	CmdDeleteRound   CommandType = "DeleteRound"
	CmdAddExpense    CommandType = "AddExpense"
	CmdDeleteExpense CommandType = "DeleteExpense"
	CmdUpdateRules   CommandType = "UpdateRules"
)

/*
	CmdAddPlayer     -> EvtPlayerAdded
	CmdRenamePlayer  -> EvtPlayerRenamed
	CmdSetChipCount  -> EvtChipCountSet (nil count clears it)
	CmdAddRound      -> EvtRoundAdded, every active player at starting points
	CmdEditScores    -> EvtScoresEdited, guarded by the round revision
	CmdDeleteRound   -> EvtRoundDeleted
	CmdAddExpense    -> EvtExpenseAdded
	CmdDeleteExpense -> EvtExpenseDeleted
	CmdUpdateRules   -> EvtRulesUpdated, guarded by the rules revision
*/

type Command struct {
	Type            CommandType
	PlayerID        string
	Name            string
	ChipCount       *int64
	RoundID         string
	ActivePlayerIDs []string
	Scores          map[string]int64
	Busters         map[string]string
	Expense         engine.Expense
	ExpenseID       string
	Rules           engine.Rules
	Revision        int
}

type EventType string

const (
	EvtPlayerAdded    EventType = "PlayerAdded"
	EvtPlayerRenamed  EventType = "PlayerRenamed"
	EvtChipCountSet   EventType = "ChipCountSet"
	EvtRoundAdded     EventType = "RoundAdded"
	EvtScoresEdited   EventType = "ScoresEdited"
	EvtRoundDeleted   EventType = "RoundDeleted"
	EvtExpenseAdded   EventType = "ExpenseAdded"
	EvtExpenseDeleted EventType = "ExpenseDeleted"
	EvtRulesUpdated   EventType = "RulesUpdated"
)

type Event struct {
	Type      EventType
	PlayerID  string
	RoundID   string
	ExpenseID string
}

var newID = func() string {
	return uuid.NewString()
}

// Apply validates cmd against s and returns the events and the next state.
// s is never modified.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	switch cmd.Type {
	case CmdAddPlayer:
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, s, fmt.Errorf("%w: player name is empty", ErrInvalidCommand)
		}
		p := engine.Player{ID: newID(), DisplayName: name, SeatOrder: s.nextSeat()}
		next.Players = append(next.Players, p)
		return []Event{{Type: EvtPlayerAdded, PlayerID: p.ID}}, next, nil

	case CmdRenamePlayer:
		i, ok := s.player(cmd.PlayerID)
		if !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownPlayer, cmd.PlayerID)
		}
		name := strings.TrimSpace(cmd.Name)
		if name == "" {
			return nil, s, fmt.Errorf("%w: player name is empty", ErrInvalidCommand)
		}
		next.Players[i].DisplayName = name
		return []Event{{Type: EvtPlayerRenamed, PlayerID: cmd.PlayerID}}, next, nil

	case CmdSetChipCount:
		i, ok := s.player(cmd.PlayerID)
		if !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownPlayer, cmd.PlayerID)
		}
		if cmd.ChipCount == nil {
			next.Players[i].ChipCount.Valid = false
			next.Players[i].ChipCount.V = 0
		} else {
			if *cmd.ChipCount < 0 {
				return nil, s, fmt.Errorf("%w: chip count %d is negative", ErrInvalidCommand, *cmd.ChipCount)
			}
			next.Players[i].ChipCount = engine.ChipCountOf(*cmd.ChipCount)
		}
		return []Event{{Type: EvtChipCountSet, PlayerID: cmd.PlayerID}}, next, nil

	case CmdAddRound:
		active := cmd.ActivePlayerIDs
		if len(active) == 0 {
			active = s.tablePlayers()
		}
		if err := checkActive(s, active); err != nil {
			return nil, s, err
		}
		r := Round{Round: engine.Round{ID: newID(), Seq: s.nextSeq(), Busters: map[string]string{}}}
		for _, id := range active {
			r.Scores = append(r.Scores, engine.RoundScore{PlayerID: id, RawScore: s.Rules.StartingPoints})
		}
		next.Rounds = append(next.Rounds, r)
		return []Event{{Type: EvtRoundAdded, RoundID: r.ID}}, next, nil

	case CmdEditScores:
		i, ok := s.round(cmd.RoundID)
		if !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownRound, cmd.RoundID)
		}
		r := &next.Rounds[i]
		if cmd.Revision != r.Revision {
			return nil, s, fmt.Errorf("%w: round %s is at revision %d, got %d", ErrRevisionConflict, r.ID, r.Revision, cmd.Revision)
		}
		if err := editScores(r, cmd.Scores, cmd.Busters); err != nil {
			return nil, s, err
		}
		r.Revision++
		return []Event{{Type: EvtScoresEdited, RoundID: r.ID}}, next, nil

	case CmdDeleteRound:
		i, ok := s.round(cmd.RoundID)
		if !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownRound, cmd.RoundID)
		}
		next.Rounds = slices.Delete(next.Rounds, i, i+1)
		return []Event{{Type: EvtRoundDeleted, RoundID: cmd.RoundID}}, next, nil

	case CmdAddExpense:
		e := cmd.Expense
		if _, ok := s.player(e.PayerID); !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownPlayer, e.PayerID)
		}
		if e.Amount <= 0 {
			return nil, s, fmt.Errorf("%w: expense amount must be positive, got %d", ErrInvalidCommand, e.Amount)
		}
		if e.AllMembers {
			e.TargetIDs = nil
		}
		for _, id := range e.TargetIDs {
			if _, ok := s.player(id); !ok {
				return nil, s, fmt.Errorf("%w %s", ErrUnknownPlayer, id)
			}
		}
		e.ID = newID()
		e.TargetIDs = slices.Clone(e.TargetIDs)
		next.Expenses = append(next.Expenses, e)
		return []Event{{Type: EvtExpenseAdded, ExpenseID: e.ID}}, next, nil

	case CmdDeleteExpense:
		i, ok := s.expense(cmd.ExpenseID)
		if !ok {
			return nil, s, fmt.Errorf("%w %s", ErrUnknownExpense, cmd.ExpenseID)
		}
		next.Expenses = slices.Delete(next.Expenses, i, i+1)
		return []Event{{Type: EvtExpenseDeleted, ExpenseID: cmd.ExpenseID}}, next, nil

	case CmdUpdateRules:
		if cmd.Revision != s.Rules.Revision {
			return nil, s, fmt.Errorf("%w: rules are at revision %d, got %d", ErrRevisionConflict, s.Rules.Revision, cmd.Revision)
		}
		if err := cmd.Rules.Validate(); err != nil {
			return nil, s, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		rules := cmd.Rules
		rules.PlacementBonus = slices.Clone(rules.PlacementBonus)
		rules.Revision = s.Rules.Revision + 1
		next.Rules = rules
		return []Event{{Type: EvtRulesUpdated}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func checkActive(s State, active []string) error {
	if len(active) != s.Rules.PlayerCount {
		return fmt.Errorf("%w: a round needs %d players, got %d", ErrInvalidCommand, s.Rules.PlayerCount, len(active))
	}
	seen := make(map[string]bool, len(active))
	for _, id := range active {
		if _, ok := s.player(id); !ok {
			return fmt.Errorf("%w %s", ErrUnknownPlayer, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: player %s listed twice", ErrInvalidCommand, id)
		}
		seen[id] = true
	}
	return nil
}

// editScores overwrites the given scores and, when busters is non-nil,
// replaces the bust assignment. Only the round's active players may appear.
func editScores(r *Round, scores map[string]int64, busters map[string]string) error {
	active := make(map[string]int, len(r.Scores))
	for i, sc := range r.Scores {
		active[sc.PlayerID] = i
	}
	for id := range scores {
		if _, ok := active[id]; !ok {
			return fmt.Errorf("%w %s in round %s", ErrUnknownPlayer, id, r.ID)
		}
	}
	for busted, buster := range busters {
		_, okBusted := active[busted]
		_, okBuster := active[buster]
		if !okBusted || !okBuster {
			return fmt.Errorf("%w in bust assignment %s -> %s", ErrUnknownPlayer, busted, buster)
		}
	}

	for id, score := range scores {
		r.Scores[active[id]].RawScore = score
	}
	if busters != nil {
		r.Busters = make(map[string]string, len(busters))
		for busted, buster := range busters {
			r.Busters[busted] = buster
		}
	}
	return nil
}
