package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/internal/render"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"go.uber.org/zap"
)

const adminTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()

	var n int
	if err := s.coord.Query(ctx, func(reg *session.Registry) { n = reg.Len() }); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, chessdto.Health{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, chessdto.Health{Status: "ok", Sessions: n})
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()

	entries, err := s.lobby.List(ctx)
	if err != nil {
		obslog.L().Error("admin_lobby_error", zap.Error(err))
		http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
		return
	}
	out := make([]chessdto.LobbyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, chessdto.LobbyEntry{SessionID: e.SessionID, OpenedAt: e.OpenedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// snapshot copies what the admin routes need out of the event loop.
func (s *Server) snapshot(ctx context.Context, id string) (members map[string]chess.Color, st chess.GameState, found bool, err error) {
	err = s.coord.Query(ctx, func(reg *session.Registry) {
		sess, ok := reg.Get(id)
		if !ok {
			return
		}
		found = true
		members = sess.Members()
		st = sess.Game.Snapshot()
	})
	return members, st, found, err
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()

	id := r.PathValue("id")
	members, st, found, err := s.snapshot(ctx, id)
	if err != nil {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	sum := chessdto.SessionSummary{
		SessionID: id,
		Members:   make(map[string]string, len(members)),
		Status:    string(st.GameStatus),
		ToMove:    string(st.CurrentPlayer),
		Plies:     len(st.MoveHistory),
		FEN:       notation.FEN(st),
	}
	for conn, c := range members {
		sum.Members[conn] = string(c)
	}
	sum.SAN, sum.SANComplete = notation.SAN(st.MoveHistory)
	if sum.SAN == nil {
		sum.SAN = []string{}
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminTimeout)
	defer cancel()

	id := r.PathValue("id")
	_, st, found, err := s.snapshot(ctx, id)
	if err != nil {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	header := fmt.Sprintf("%s - %s, %s to move", id, st.GameStatus, st.CurrentPlayer)
	raw, err := render.RenderPNG(ctx, st, render.Options{Header: header})
	if err != nil {
		obslog.L().Error("admin_render_error", zap.String("session_id", id), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Debug("admin_write_error", zap.Error(err))
	}
}
