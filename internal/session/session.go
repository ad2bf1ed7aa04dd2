package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mahjong-settlement/internal/engine"
	"github.com/DoyleJ11/mahjong-settlement/internal/metrics"
)

const saveTimeout = 5 * time.Second

type Msg interface{ isSessionMsg() }

// FromClient carries a command. Reply is optional and receives nil on success.
type FromClient struct {
	Cmd   Command
	Reply chan error
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Snapshot struct {
	Version    int
	State      State
	Settlement engine.Settlement
}

type View struct {
	Version    int
	NumClients int
	State      State
	Settlement engine.Settlement
}

type Session struct {
	code       string
	inbox      chan Msg
	state      State
	version    int
	settlement engine.Settlement
	clients    map[string]chan Snapshot
	repo       Repository
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewSession(parent context.Context, code string, initial State, version int, repo Repository, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		version: version,
		clients: make(map[string]chan Snapshot),
		repo:    repo,
		log:     log.With(zap.String("session", code)),
		ctx:     ctx,
		cancel:  cancel,
	}
	if settlement, err := compute(initial); err != nil {
		s.log.Warn("stored snapshot does not settle", zap.Error(err))
	} else {
		s.settlement = settlement
	}

	go s.loop()
	return s
}

func (s *Session) Code() string { return s.code }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				err := s.handle(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
					Settlement: s.settlement,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

// handle applies, settles, persists and broadcasts one command.
func (s *Session) handle(cmd Command) error {
	events, next, err := Apply(s.state, cmd)
	if err != nil {
		metrics.CommandsApplied.WithLabelValues(string(cmd.Type), "rejected").Inc()
		s.log.Debug("command rejected", zap.String("type", string(cmd.Type)), zap.Error(err))
		return err
	}

	settlement, err := compute(next)
	if err != nil {
		metrics.CommandsApplied.WithLabelValues(string(cmd.Type), "rejected").Inc()
		s.log.Warn("command leaves session unsettleable", zap.String("type", string(cmd.Type)), zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(s.ctx, saveTimeout)
	err = s.repo.Save(ctx, s.code, next, s.version+1)
	cancel()
	if err != nil {
		metrics.CommandsApplied.WithLabelValues(string(cmd.Type), "failed").Inc()
		if errors.Is(err, ErrVersionConflict) {
			metrics.RepositoryConflicts.Inc()
			s.log.Info("stale session, reloading", zap.Int("version", s.version))
			s.reload()
		} else {
			s.log.Error("failed to save session", zap.Error(err))
		}
		return err
	}

	s.state = next
	s.version++
	s.settlement = settlement
	metrics.CommandsApplied.WithLabelValues(string(cmd.Type), "ok").Inc()
	for _, e := range events {
		s.log.Info("session event",
			zap.String("event", string(e.Type)),
			zap.Int("version", s.version),
			zap.String("player", e.PlayerID),
			zap.String("round", e.RoundID),
			zap.String("expense", e.ExpenseID),
		)
	}
	s.broadcast(s.snapshot())
	return nil
}

// reload replaces the in-memory snapshot with the stored one after another
// writer won a save race.
func (s *Session) reload() {
	ctx, cancel := context.WithTimeout(s.ctx, saveTimeout)
	defer cancel()

	state, version, err := s.repo.Load(ctx, s.code)
	if err != nil {
		s.log.Error("failed to reload session", zap.Error(err))
		return
	}
	settlement, err := compute(state)
	if err != nil {
		s.log.Warn("reloaded snapshot does not settle", zap.Error(err))
	}
	s.state = state
	s.version = version
	s.settlement = settlement
	s.broadcast(s.snapshot())
}

func compute(state State) (engine.Settlement, error) {
	start := time.Now()
	settlement, err := state.Settlement()
	if err != nil {
		return engine.Settlement{}, err
	}
	metrics.SettlementsComputed.Inc()
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	if settlement.HasUnconfirmed {
		metrics.UnconfirmedSettlements.Inc()
	}
	return settlement, nil
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, State: s.state, Settlement: s.settlement}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

// Expose the inbox so the hub, ws and http layers can send messages.
func (s *Session) Inbox() chan<- Msg { return s.inbox }
