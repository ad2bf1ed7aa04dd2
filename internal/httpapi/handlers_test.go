package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mahjong-settlement/internal/hub"
	"github.com/DoyleJ11/mahjong-settlement/internal/store"
	pkgtypes "github.com/DoyleJ11/mahjong-settlement/pkg/types"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, store.NewMemoryStore(), zap.NewNop())
	return SetupRoutes(h, zap.NewNop())
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/sessions", pkgtypes.CreateSessionRequest{
		Name:    "Friday",
		Players: []string{"Tanaka", "Sato", "Suzuki", "Takahashi"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	code := decode[pkgtypes.CreateSessionResponse](t, rec).Code
	require.Len(t, code, 6)
	return code
}

func command(t *testing.T, router http.Handler, code string, msg map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, router, http.MethodPost, "/sessions/"+code+"/commands", msg)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	router := newRouter(t)
	do(t, router, http.MethodGet, "/healthz", nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mahjong_http_requests_total")
}

func TestSessionLifecycle(t *testing.T) {
	router := newRouter(t)
	code := createSession(t, router)

	rec := do(t, router, http.MethodGet, "/sessions/"+code, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[pkgtypes.SessionView](t, rec)
	assert.Equal(t, code, view.Code)
	assert.Equal(t, 0, view.Version)
	require.Len(t, view.Players, 4)
	ids := make([]string, 4)
	for i, p := range view.Players {
		ids[i] = p.ID
		assert.Equal(t, i+1, p.SeatOrder)
	}

	rec = command(t, router, code, map[string]any{"type": "AddRound"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[pkgtypes.SessionView](t, rec)
	require.Len(t, view.Rounds, 1)
	roundID := view.Rounds[0].ID

	rec = command(t, router, code, map[string]any{
		"type":     "EditScores",
		"round_id": roundID,
		"revision": 0,
		"scores":   map[string]int64{ids[0]: 45000, ids[1]: 28000, ids[2]: 15000, ids[3]: 12000},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decode[pkgtypes.SessionView](t, rec)
	assert.Equal(t, 2, view.Version)
	assert.Equal(t, 45.0, view.Settlement.Balances[0].MahjongPoints)
	assert.EqualValues(t, 4500, view.Settlement.Balances[0].TotalYen)

	rec = do(t, router, http.MethodGet, "/sessions/"+code+"/settlement", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settlement := decode[pkgtypes.SettlementView](t, rec)
	assert.False(t, settlement.HasUnconfirmed)
	require.NotEmpty(t, settlement.Transfers)
	assert.Equal(t, "Takahashi", settlement.Transfers[0].FromName)

	rec = do(t, router, http.MethodGet, "/sessions/"+code+"/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[Mahjong settlement] Friday\n"))
	assert.Contains(t, rec.Body.String(), "Tanaka: +45.0pt / +4,500 yen")
}

func TestCommandErrors(t *testing.T) {
	router := newRouter(t)
	code := createSession(t, router)
	rec := command(t, router, code, map[string]any{"type": "AddRound"})
	require.Equal(t, http.StatusOK, rec.Code)
	roundID := decode[pkgtypes.SessionView](t, rec).Rounds[0].ID

	tests := []struct {
		name string
		msg  map[string]any
		want int
	}{
		{"unsupported", map[string]any{"type": "Shuffle"}, http.StatusBadRequest},
		{"empty name", map[string]any{"type": "AddPlayer", "name": " "}, http.StatusBadRequest},
		{"expense missing", map[string]any{"type": "AddExpense"}, http.StatusBadRequest},
		{"unknown round", map[string]any{"type": "DeleteRound", "round_id": "nope"}, http.StatusNotFound},
		{"stale revision", map[string]any{"type": "EditScores", "round_id": roundID, "revision": 3}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := command(t, router, code, tt.msg)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[pkgtypes.ErrorResponse](t, rec).Error)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	router := newRouter(t)
	for _, path := range []string{"/sessions/NOPE00", "/sessions/NOPE00/settlement", "/sessions/NOPE00/report"} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := command(t, router, "NOPE00", map[string]any{"type": "AddRound"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSession_BadInput(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/sessions", pkgtypes.CreateSessionRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rules := pkgtypes.RulesView{PlayerCount: 5}
	rec = do(t, router, http.MethodPost, "/sessions", pkgtypes.CreateSessionRequest{Name: "x", Rules: &rules})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestCreateSession_RetriesCodeCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	orig := generateCode
	generateCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	t.Cleanup(func() { generateCode = orig })

	router := newRouter(t)
	first := decode[pkgtypes.CreateSessionResponse](t, do(t, router, http.MethodPost, "/sessions", pkgtypes.CreateSessionRequest{Name: "a"}))
	second := decode[pkgtypes.CreateSessionResponse](t, do(t, router, http.MethodPost, "/sessions", pkgtypes.CreateSessionRequest{Name: "b"}))
	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}
