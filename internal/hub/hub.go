package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mahjong-settlement/internal/metrics"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
)

const repoTimeout = 5 * time.Second

type HubMsg interface{ isHubMsg() }

// Result is the reply to CreateSession and GetSession. Session is nil
// whenever Err is set.
type Result struct {
	Session *session.Session
	Err     error
}

// CreateSession persists a fresh session under Code and starts its actor.
// Fails with session.ErrCodeTaken when the code already exists.
type CreateSession struct {
	Code  string
	State session.State
	Reply chan Result
}

// GetSession returns the running actor, loading it from the repository
// on first access.
type GetSession struct {
	Code  string
	Reply chan Result
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	repo     session.Repository
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, repo session.Repository, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		repo:     repo,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.create(msg.Code, msg.State)

			case GetSession:
				msg.Reply <- h.get(msg.Code)

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.Code)
					metrics.ActiveSessions.Dec()
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(code string, state session.State) Result {
	ctx, cancel := context.WithTimeout(h.ctx, repoTimeout)
	defer cancel()

	if err := h.repo.Create(ctx, code, state); err != nil {
		return Result{Err: err}
	}
	s := h.start(code, state, 0)
	h.log.Info("session created", zap.String("session", code), zap.String("name", state.Name))
	return Result{Session: s}
}

func (h *Hub) get(code string) Result {
	if s := h.sessions[code]; s != nil {
		return Result{Session: s}
	}

	ctx, cancel := context.WithTimeout(h.ctx, repoTimeout)
	defer cancel()

	state, version, err := h.repo.Load(ctx, code)
	if err != nil {
		return Result{Err: err}
	}
	h.log.Debug("session loaded", zap.String("session", code), zap.Int("version", version))
	return Result{Session: h.start(code, state, version)}
}

func (h *Hub) start(code string, state session.State, version int) *session.Session {
	s := session.NewSession(h.ctx, code, state, version, h.repo, h.log)
	h.sessions[code] = s
	metrics.ActiveSessions.Inc()
	return s
}

func (h *Hub) shutdown() {
	for code, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
		delete(h.sessions, code)
		metrics.ActiveSessions.Dec()
	}
	h.cancel()
}
