package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

func sampleState() session.State {
	s := session.NewState("Friday", engine.DefaultRules())
	s.Players = []engine.Player{
		{ID: "p1", DisplayName: "Tanaka", SeatOrder: 1, ChipCount: engine.ChipCountOf(3)},
		{ID: "p2", DisplayName: "Sato", SeatOrder: 2},
		{ID: "p3", DisplayName: "Suzuki", SeatOrder: 3, ChipCount: engine.ChipCountOf(0)},
		{ID: "p4", DisplayName: "Takahashi", SeatOrder: 4},
	}
	s.Rounds = []session.Round{{
		Round: engine.Round{
			ID:  "r1",
			Seq: 1,
			Scores: []engine.RoundScore{
				{PlayerID: "p1", RawScore: 50000},
				{PlayerID: "p2", RawScore: 30000},
				{PlayerID: "p3", RawScore: 25000},
				{PlayerID: "p4", RawScore: -5000},
			},
			Busters: map[string]string{"p4": "p1"},
		},
		Revision: 2,
	}}
	s.Expenses = []engine.Expense{
		{ID: "e1", PayerID: "p2", Amount: 4000, Description: "table fee", AllMembers: true},
		{ID: "e2", PayerID: "p1", Amount: 1000, Description: "drinks", TargetIDs: []string{"p1", "p3"}},
	}
	return s
}

// testRepository runs the contract every session.Repository must honour.
func testRepository(t *testing.T, repo session.Repository, code string) {
	ctx := context.Background()
	state := sampleState()

	require.NoError(t, repo.Create(ctx, code, state))
	assert.ErrorIs(t, repo.Create(ctx, code, state), session.ErrCodeTaken)

	got, version, err := repo.Load(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Equal(t, state, got)

	state.Players[1].ChipCount = engine.ChipCountOf(7)
	state.Expenses = state.Expenses[:1]
	require.NoError(t, repo.Save(ctx, code, state, 1))

	got, version, err = repo.Load(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, state, got)

	// A second writer still at version 0 loses.
	assert.ErrorIs(t, repo.Save(ctx, code, state, 1), session.ErrVersionConflict)
	assert.ErrorIs(t, repo.Save(ctx, code, state, 3), session.ErrVersionConflict)

	_, _, err = repo.Load(ctx, code+"X")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, repo.Save(ctx, code+"X", state, 1), session.ErrNotFound)
}
