package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
)

// stubIDs makes newID deterministic for the duration of the test.
func stubIDs(t *testing.T) {
	t.Helper()
	orig := newID
	n := 0
	newID = func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
	t.Cleanup(func() { newID = orig })
}

func mustApply(t *testing.T, s State, cmd Command) (State, []Event) {
	t.Helper()
	events, next, err := Apply(s, cmd)
	require.NoError(t, err)
	return next, events
}

// seated returns a session with four players id1..id4 and one round id5.
func seated(t *testing.T) State {
	t.Helper()
	s := NewState("Friday", engine.DefaultRules())
	for _, name := range []string{"Tanaka", "Sato", "Suzuki", "Takahashi"} {
		s, _ = mustApply(t, s, Command{Type: CmdAddPlayer, Name: name})
	}
	s, _ = mustApply(t, s, Command{Type: CmdAddRound})
	return s
}

func TestApply_AddPlayerAssignsIDAndSeat(t *testing.T) {
	stubIDs(t)
	s := NewState("Friday", engine.DefaultRules())

	s, events := mustApply(t, s, Command{Type: CmdAddPlayer, Name: "  Tanaka "})
	s, _ = mustApply(t, s, Command{Type: CmdAddPlayer, Name: "Sato"})

	assert.Equal(t, []Event{{Type: EvtPlayerAdded, PlayerID: "id1"}}, events)
	require.Len(t, s.Players, 2)
	assert.Equal(t, "Tanaka", s.Players[0].DisplayName)
	assert.Equal(t, 1, s.Players[0].SeatOrder)
	assert.Equal(t, 2, s.Players[1].SeatOrder)
	assert.False(t, s.Players[0].ChipCount.Valid)
}

func TestApply_AddRoundSeatsTableAtStartingPoints(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	s, _ = mustApply(t, s, Command{Type: CmdAddPlayer, Name: "Watanabe"})

	s, events := mustApply(t, s, Command{Type: CmdAddRound, ActivePlayerIDs: []string{"id6", "id2", "id3", "id4"}})
	assert.Equal(t, []Event{{Type: EvtRoundAdded, RoundID: "id7"}}, events)

	require.Len(t, s.Rounds, 2)
	first, second := s.Rounds[0], s.Rounds[1]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, []engine.RoundScore{
		{PlayerID: "id1", RawScore: 25000},
		{PlayerID: "id2", RawScore: 25000},
		{PlayerID: "id3", RawScore: 25000},
		{PlayerID: "id4", RawScore: 25000},
	}, first.Scores)
	assert.Equal(t, "id6", second.Scores[0].PlayerID)
}

func TestApply_EditScoresThenSettle(t *testing.T) {
	stubIDs(t)
	s := seated(t)

	s, events := mustApply(t, s, Command{
		Type:    CmdEditScores,
		RoundID: "id5",
		Scores:  map[string]int64{"id1": 45000, "id2": 28000, "id3": 15000, "id4": 12000},
	})
	assert.Equal(t, []Event{{Type: EvtScoresEdited, RoundID: "id5"}}, events)
	assert.Equal(t, 1, s.Rounds[0].Revision)

	settlement, err := s.Settlement()
	require.NoError(t, err)
	want := map[string]int64{"id1": 4500, "id2": 300, "id3": -2000, "id4": -2800}
	for id, yen := range want {
		b, ok := settlement.Balance(id)
		require.True(t, ok, id)
		assert.Equal(t, yen, b.TotalYen, id)
	}
}

func TestApply_EditScoresRevisionConflict(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	s, _ = mustApply(t, s, Command{Type: CmdEditScores, RoundID: "id5", Scores: map[string]int64{"id1": 30000}})

	_, _, err := Apply(s, Command{Type: CmdEditScores, RoundID: "id5", Revision: 0, Scores: map[string]int64{"id1": 20000}})
	assert.ErrorIs(t, err, ErrRevisionConflict)
}

func TestApply_BustersReplacedOnlyWhenGiven(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	s, _ = mustApply(t, s, Command{Type: CmdEditScores, RoundID: "id5", Busters: map[string]string{"id4": "id1"}})
	s, _ = mustApply(t, s, Command{Type: CmdEditScores, RoundID: "id5", Revision: 1, Scores: map[string]int64{"id4": -100}})
	assert.Equal(t, map[string]string{"id4": "id1"}, s.Rounds[0].Busters)

	s, _ = mustApply(t, s, Command{Type: CmdEditScores, RoundID: "id5", Revision: 2, Busters: map[string]string{}})
	assert.Empty(t, s.Rounds[0].Busters)
}

func TestApply_ChipCountSetAndCleared(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	five := int64(5)

	s, _ = mustApply(t, s, Command{Type: CmdSetChipCount, PlayerID: "id2", ChipCount: &five})
	assert.Equal(t, engine.ChipCountOf(5), s.Players[1].ChipCount)

	s, _ = mustApply(t, s, Command{Type: CmdSetChipCount, PlayerID: "id2"})
	assert.False(t, s.Players[1].ChipCount.Valid)
}

func TestApply_ExpensesAndDeletes(t *testing.T) {
	stubIDs(t)
	s := seated(t)

	s, events := mustApply(t, s, Command{Type: CmdAddExpense, Expense: engine.Expense{
		PayerID: "id1", Amount: 1000, AllMembers: true, TargetIDs: []string{"id2"},
	}})
	assert.Equal(t, []Event{{Type: EvtExpenseAdded, ExpenseID: "id6"}}, events)
	require.Len(t, s.Expenses, 1)
	assert.Nil(t, s.Expenses[0].TargetIDs)

	s, _ = mustApply(t, s, Command{Type: CmdDeleteExpense, ExpenseID: "id6"})
	assert.Empty(t, s.Expenses)

	s, _ = mustApply(t, s, Command{Type: CmdDeleteRound, RoundID: "id5"})
	assert.Empty(t, s.Rounds)
}

func TestApply_UpdateRulesBumpsRevision(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	rules := engine.DefaultRules()
	rules.CurrencyRate = 50

	s, _ = mustApply(t, s, Command{Type: CmdUpdateRules, Rules: rules})
	assert.Equal(t, 1, s.Rules.Revision)
	assert.EqualValues(t, 50, s.Rules.CurrencyRate)

	_, _, err := Apply(s, Command{Type: CmdUpdateRules, Rules: rules, Revision: 0})
	assert.ErrorIs(t, err, ErrRevisionConflict)
}

func TestApply_Rejections(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	negative := int64(-1)
	badRules := engine.DefaultRules()
	badRules.PlayerCount = 5

	tests := []struct {
		name string
		cmd  Command
		want error
	}{
		{"empty name", Command{Type: CmdAddPlayer, Name: "  "}, ErrInvalidCommand},
		{"rename unknown", Command{Type: CmdRenamePlayer, PlayerID: "nope", Name: "x"}, ErrUnknownPlayer},
		{"negative chips", Command{Type: CmdSetChipCount, PlayerID: "id1", ChipCount: &negative}, ErrInvalidCommand},
		{"round too small", Command{Type: CmdAddRound, ActivePlayerIDs: []string{"id1", "id2", "id3"}}, ErrInvalidCommand},
		{"round duplicate player", Command{Type: CmdAddRound, ActivePlayerIDs: []string{"id1", "id1", "id2", "id3"}}, ErrInvalidCommand},
		{"round unknown player", Command{Type: CmdAddRound, ActivePlayerIDs: []string{"id1", "id2", "id3", "zz"}}, ErrUnknownPlayer},
		{"edit unknown round", Command{Type: CmdEditScores, RoundID: "zz"}, ErrUnknownRound},
		{"edit inactive player", Command{Type: CmdEditScores, RoundID: "id5", Scores: map[string]int64{"zz": 1}}, ErrUnknownPlayer},
		{"buster outside round", Command{Type: CmdEditScores, RoundID: "id5", Busters: map[string]string{"id4": "zz"}}, ErrUnknownPlayer},
		{"delete unknown round", Command{Type: CmdDeleteRound, RoundID: "zz"}, ErrUnknownRound},
		{"expense zero amount", Command{Type: CmdAddExpense, Expense: engine.Expense{PayerID: "id1", AllMembers: true}}, ErrInvalidCommand},
		{"expense unknown payer", Command{Type: CmdAddExpense, Expense: engine.Expense{PayerID: "zz", Amount: 10}}, ErrUnknownPlayer},
		{"expense unknown target", Command{Type: CmdAddExpense, Expense: engine.Expense{PayerID: "id1", Amount: 10, TargetIDs: []string{"zz"}}}, ErrUnknownPlayer},
		{"delete unknown expense", Command{Type: CmdDeleteExpense, ExpenseID: "zz"}, ErrUnknownExpense},
		{"invalid rules", Command{Type: CmdUpdateRules, Rules: badRules}, engine.ErrInvalidRules},
		{"unsupported", Command{Type: "Shuffle"}, ErrUnsupportedCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Clone()
			_, got, err := Apply(s, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, got)
			assert.Equal(t, before, s)
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	stubIDs(t)
	s := seated(t)
	before := s.Clone()

	_, _ = mustApply(t, s, Command{Type: CmdEditScores, RoundID: "id5", Scores: map[string]int64{"id1": 1}, Busters: map[string]string{"id2": "id1"}})
	_, _ = mustApply(t, s, Command{Type: CmdRenamePlayer, PlayerID: "id1", Name: "Ito"})

	assert.Equal(t, before, s)
}
