package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-duel/internal/lobby"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	readLimit    = 16 << 10
	writeTimeout = 5 * time.Second
	pingTimeout  = 5 * time.Second
)

type Options struct {
	// Origins lists allowed Origin header values. Empty accepts any origin.
	Origins      []string
	PingInterval time.Duration
}

// Server accepts player connections on /ws and serves the admin routes.
type Server struct {
	hub          *Hub
	coord        *session.Coordinator
	lobby        lobby.Index
	origins      map[string]bool
	pingInterval time.Duration
	mux          *http.ServeMux

	base context.Context
	stop context.CancelFunc
}

func New(hub *Hub, coord *session.Coordinator, idx lobby.Index, opts Options) *Server {
	origins := map[string]bool{}
	for _, o := range opts.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = 15 * time.Second
	}
	base, stop := context.WithCancel(context.Background())
	s := &Server{
		base:         base,
		stop:         stop,
		hub:          hub,
		coord:        coord,
		lobby:        idx,
		origins:      origins,
		pingInterval: ping,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ws", s.ServeWS)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /lobby", s.handleLobby)
	s.mux.HandleFunc("GET /sessions/{id}", s.handleSession)
	s.mux.HandleFunc("GET /sessions/{id}/board.png", s.handleBoard)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

// Close drops every open socket. Hijacked connections are not covered by
// http.Server.Shutdown.
func (s *Server) Close() { s.stop() }

func (s *Server) originAllowed(origin string) bool {
	if origin == "" || len(s.origins) == 0 {
		return true
	}
	return s.origins[origin]
}

// ServeWS upgrades the request and pumps envelopes between the socket and
// the coordinator until either side goes away.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !s.originAllowed(r.Header.Get("Origin")) {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	connID := uuid.NewString()
	c := s.hub.register(connID)
	obslog.L().Info("ws_connect", zap.String("conn_id", connID), zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	unwatch := context.AfterFunc(s.base, cancel)
	defer unwatch()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, c)
	}()

	reason := s.readLoop(ctx, conn, connID)

	s.hub.unregister(connID)
	<-writerDone
	if err := s.coord.Disconnect(connID); err != nil {
		obslog.L().Warn("ws_disconnect_error", zap.String("conn_id", connID), zap.Error(err))
	}
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	obslog.L().Info("ws_disconnect", zap.String("conn_id", connID), zap.String("reason", reason))
}

// readLoop returns a short reason once the connection stops delivering frames.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, connID string) string {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				return "closed: " + status.String()
			}
			if errors.Is(err, context.Canceled) {
				return "cancelled"
			}
			return err.Error()
		}
		if typ != websocket.MessageText {
			continue
		}
		var env chessdto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			obslog.L().Warn("ws_bad_frame", zap.String("conn_id", connID), zap.Error(err))
			continue
		}
		if err := chessdto.ValidateEnvelope(env); err != nil {
			obslog.L().Warn("ws_bad_frame", zap.String("conn_id", connID), zap.Error(err))
			continue
		}
		if err := s.coord.Dispatch(ctx, connID, env); err != nil {
			return "dispatch: " + err.Error()
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, c *client) {
	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-c.send:
			if !ok {
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, env)
			wcancel()
			if err != nil {
				obslog.L().Debug("ws_write_error", zap.String("conn_id", c.id), zap.Error(err))
				cancel()
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				obslog.L().Debug("ws_ping_error", zap.String("conn_id", c.id), zap.Error(err))
				cancel()
				return
			}
		}
	}
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && len(s.origins) > 0 && s.origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
