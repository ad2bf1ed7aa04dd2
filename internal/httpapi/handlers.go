package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/hub"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
	"github.com/DoyleJ11/mahjong-settlement/internal/types"
	pkgtypes "github.com/DoyleJ11/mahjong-settlement/pkg/types"
)

const maxCodeAttempts = 5

var errBadRequest = errors.New("bad request")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// generateCode is swapped in tests to force collisions.
var generateCode = GenerateCode

func CreateSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pkgtypes.CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, errors.Join(errBadRequest, err))
			return
		}
		state, err := initialState(req)
		if err != nil {
			writeError(w, log, err)
			return
		}

		for attempt := 0; attempt < maxCodeAttempts; attempt++ {
			code, err := generateCode()
			if err != nil {
				writeError(w, log, err)
				return
			}
			reply := make(chan hub.Result, 1)
			h.Inbox() <- hub.CreateSession{Code: code, State: state, Reply: reply}
			res, err := await(r.Context(), reply)
			if err == nil {
				err = res.Err
			}
			if errors.Is(err, session.ErrCodeTaken) {
				log.Debug("collision on code, regenerating", zap.String("code", code))
				continue
			}
			if err != nil {
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusCreated, pkgtypes.CreateSessionResponse{Code: code})
			return
		}
		writeError(w, log, session.ErrCodeTaken)
	}
}

// initialState seats the requested players through the same commands a
// client would send, so ids and seat orders follow the usual rules.
func initialState(req pkgtypes.CreateSessionRequest) (session.State, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return session.State{}, errors.Join(errBadRequest, errors.New("session name is empty"))
	}
	rules := engine.DefaultRules()
	if req.Rules != nil {
		rules = req.Rules.Engine()
		rules.Revision = 0
	}
	if err := rules.Validate(); err != nil {
		return session.State{}, err
	}

	state := session.NewState(name, rules)
	for _, p := range req.Players {
		_, next, err := session.Apply(state, session.Command{Type: session.CmdAddPlayer, Name: p})
		if err != nil {
			return session.State{}, err
		}
		state = next
	}
	return state, nil
}

func GetSession(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		view, err := fetchView(r.Context(), h, code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, pkgtypes.FromView(code, view))
	}
}

func GetSettlement(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := fetchView(r.Context(), h, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, pkgtypes.FromSettlement(view.Settlement))
	}
}

func GetReport(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := fetchView(r.Context(), h, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(engine.RenderReportText(view.Settlement, view.State.Name)))
	}
}

// PostCommand applies one command and answers with the resulting session.
func PostCommand(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")

		var msg types.ClientMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeError(w, log, errors.Join(errBadRequest, err))
			return
		}
		cmd, err := msg.ToCommand()
		if err != nil {
			writeError(w, log, err)
			return
		}

		s, err := lookup(r.Context(), h, code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		reply := make(chan error, 1)
		s.Inbox() <- session.FromClient{Cmd: cmd, Reply: reply}
		applyErr, err := await(r.Context(), reply)
		if err == nil {
			err = applyErr
		}
		if err != nil {
			writeError(w, log, err)
			return
		}

		view, err := fetchView(r.Context(), h, code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, pkgtypes.FromView(code, view))
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(ctx context.Context, h *hub.Hub, code string) (*session.Session, error) {
	reply := make(chan hub.Result, 1)
	h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
	res, err := await(ctx, reply)
	if err != nil {
		return nil, err
	}
	return res.Session, res.Err
}

func fetchView(ctx context.Context, h *hub.Hub, code string) (session.View, error) {
	s, err := lookup(ctx, h, code)
	if err != nil {
		return session.View{}, err
	}
	reply := make(chan session.View, 1)
	s.Inbox() <- session.GetState{Reply: reply}
	return await(ctx, reply)
}

func await[T any](ctx context.Context, ch chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidCommand),
		errors.Is(err, session.ErrUnsupportedCommand),
		errors.Is(err, engine.ErrInvalidRules),
		errors.Is(err, engine.ErrUnknownPlayer):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrUnknownPlayer),
		errors.Is(err, session.ErrUnknownRound),
		errors.Is(err, session.ErrUnknownExpense):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRevisionConflict),
		errors.Is(err, session.ErrVersionConflict),
		errors.Is(err, session.ErrCodeTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, pkgtypes.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
