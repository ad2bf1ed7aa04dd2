package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/mahjong-settlement/internal/hub"
	"github.com/DoyleJ11/mahjong-settlement/internal/metrics"
	"github.com/DoyleJ11/mahjong-settlement/internal/session"
	"github.com/DoyleJ11/mahjong-settlement/internal/types"
	pkgtypes "github.com/DoyleJ11/mahjong-settlement/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// Handler subscribes a client to one session: every accepted change is pushed
// as a StateSnapshot and incoming messages are applied as commands.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan hub.Result, 1)
		h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
		res := <-reply
		if res.Err != nil {
			http.Error(w, res.Err.Error(), http.StatusNotFound)
			return
		}
		s := res.Session

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("session", code), zap.String("client", clientID))
		metrics.WSClients.Inc()
		defer metrics.WSClients.Dec()

		out := make(chan session.Snapshot, 8)
		s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Leave{ClientID: clientID} }()
		clog.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				view := pkgtypes.FromSnapshot(code, snap)
				write(writeCtx, conn, types.ServerMessage{Type: "StateSnapshot", Version: snap.Version, Session: &view})
			}
			// Outbox closed: the session dropped us or shut down.
			conn.Close(websocket.StatusGoingAway, "session closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("client left")
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			cmd, err := cm.ToCommand()
			if err != nil {
				write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: err.Error()})
				continue
			}

			// Success is visible as the next snapshot; only failures are answered.
			applied := make(chan error, 1)
			s.Inbox() <- session.FromClient{Cmd: cmd, Reply: applied}
			select {
			case err := <-applied:
				if err != nil {
					write(r.Context(), conn, types.ServerMessage{Type: "Error", Error: err.Error()})
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
