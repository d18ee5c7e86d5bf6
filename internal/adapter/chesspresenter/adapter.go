package chesspresenter

import (
	"encoding/json"
	"sync"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"go.uber.org/zap"
)

// View is the client's local copy of its session.
type View struct {
	SessionID string
	Color     chess.Color
	State     *chess.GameState
}

// Joined reports whether the server has assigned a colour.
func (v View) Joined() bool { return v.Color.Valid() }

// Adapter merges server events into the local View and prints them.
type Adapter struct {
	mu      sync.Mutex
	p       *Presenter
	pending string
	view    View
}

func NewAdapter(p *Presenter) *Adapter {
	return &Adapter{p: p}
}

// Joining records the session id a join-game was sent for, so the next
// player-assigned can be attributed.
func (a *Adapter) Joining(sessionID string) {
	a.mu.Lock()
	a.pending = sessionID
	a.mu.Unlock()
}

// View returns a copy of the local view.
func (a *Adapter) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.view
	if v.State != nil {
		st := *v.State
		v.State = &st
	}
	return v
}

// Handle applies one server envelope. Unknown events are ignored.
func (a *Adapter) Handle(env chessdto.Envelope) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f := a.p.Formatter()
	switch env.Event {
	case chessdto.EventPlayerAssigned:
		var p chessdto.PlayerAssigned
		if !decode(env, &p) {
			return
		}
		sessionID := a.pending
		if sessionID == "" {
			sessionID = "default"
		}
		a.view = View{SessionID: sessionID, Color: p.Color, State: &p.GameState}
		a.p.Board(f.Assigned(p.Color, sessionID), a.view.State)

	case chessdto.EventGameUpdate:
		var st chess.GameState
		if !decode(env, &st) {
			return
		}
		a.view.State = &st
		a.p.Print(f.Status(st))

	case chessdto.EventMoveMade:
		var m chessdto.MoveMade
		if !decode(env, &m) {
			return
		}
		a.view.State = &m.GameState
		a.p.Board(f.Move(m.From, m.To, m.GameState), a.view.State)

	case chessdto.EventInvalidMove:
		var reason string
		if !decode(env, &reason) {
			return
		}
		a.p.Print(f.Rejected(reason))

	case chessdto.EventGameFull:
		a.pending = ""
		a.p.Print(f.Full())

	case chessdto.EventPlayerLeft:
		// the server keeps its status; the local view shows waiting
		if a.view.State != nil {
			a.view.State.GameStatus = chess.StatusWaiting
		}
		a.p.Print(f.OpponentLeft())

	case chessdto.EventGameRestarted:
		var st chess.GameState
		if !decode(env, &st) {
			return
		}
		a.view.State = &st
		a.p.Board(f.Restarted(), a.view.State)
	}
}

func decode(env chessdto.Envelope, dst any) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		obslog.L().Warn("client_bad_payload", zap.String("event", env.Event), zap.Error(err))
		return false
	}
	return true
}
