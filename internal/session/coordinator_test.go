package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/park285/cheese-duel/internal/lobby"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/pkg/chessdto"
)

type recordingOutbox struct {
	mu     sync.Mutex
	frames map[string][]chessdto.Envelope
}

func newRecordingOutbox() *recordingOutbox {
	return &recordingOutbox{frames: make(map[string][]chessdto.Envelope)}
}

func (o *recordingOutbox) Send(connID string, env chessdto.Envelope) {
	o.mu.Lock()
	o.frames[connID] = append(o.frames[connID], env)
	o.mu.Unlock()
}

// take returns and clears the frames sent to connID.
func (o *recordingOutbox) take(connID string) []chessdto.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.frames[connID]
	delete(o.frames, connID)
	return out
}

type recordingNotifier struct {
	ops []string
}

func (n *recordingNotifier) Open(e lobby.Entry)     { n.ops = append(n.ops, "open:"+e.SessionID) }
func (n *recordingNotifier) Close(sessionID string) { n.ops = append(n.ops, "close:"+sessionID) }

func newTestCoordinator(t *testing.T) (*Coordinator, *recordingOutbox, *recordingNotifier) {
	t.Helper()
	out := newRecordingOutbox()
	n := &recordingNotifier{}
	c := New(Options{Outbox: out, Notifier: n, Texts: msgcat.MustDefault(), DefaultSessionID: "default"})
	return c, out, n
}

func events(frames []chessdto.Envelope) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.Event
	}
	return out
}

func expectEvents(t *testing.T, frames []chessdto.Envelope, want ...string) {
	t.Helper()
	got := events(frames)
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events: got %v want %v", got, want)
	}
}

func decodeData(t *testing.T, env chessdto.Envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode %s: %v", env.Event, err)
	}
}

func assignedColor(t *testing.T, frames []chessdto.Envelope) chess.Color {
	t.Helper()
	for _, f := range frames {
		if f.Event == chessdto.EventPlayerAssigned {
			var p chessdto.PlayerAssigned
			decodeData(t, f, &p)
			return p.Color
		}
	}
	t.Fatalf("no player-assigned in %v", events(frames))
	return ""
}

func TestJoinAssignsWhiteThenBlackThenFull(t *testing.T) {
	c, out, _ := newTestCoordinator(t)

	c.Join("c1", "g1")
	f1 := out.take("c1")
	expectEvents(t, f1, chessdto.EventPlayerAssigned, chessdto.EventGameUpdate)
	if got := assignedColor(t, f1); got != chess.White {
		t.Fatalf("first joiner: got %s", got)
	}

	c.Join("c2", "g1")
	f2 := out.take("c2")
	expectEvents(t, f2, chessdto.EventPlayerAssigned, chessdto.EventGameUpdate)
	if got := assignedColor(t, f2); got != chess.Black {
		t.Fatalf("second joiner: got %s", got)
	}
	expectEvents(t, out.take("c1"), chessdto.EventGameUpdate)

	c.Join("c3", "g1")
	f3 := out.take("c3")
	expectEvents(t, f3, chessdto.EventGameFull)
	if len(f3[0].Data) != 0 {
		t.Fatalf("game-full carries data: %s", f3[0].Data)
	}
	expectEvents(t, out.take("c1"))
	expectEvents(t, out.take("c2"))

	s, ok := c.Registry().Get("g1")
	if !ok || s.Size() != 2 {
		t.Fatalf("membership should stay at 2")
	}
	if _, ok := c.Registry().SessionOf("c3"); ok {
		t.Fatalf("rejected connection was bound")
	}
}

func TestJoinEmptyIDUsesDefaultSession(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("c1", "  ")
	if _, ok := c.Registry().Get("default"); !ok {
		t.Fatalf("default session not created")
	}
	out.take("c1")

	c.Move("c1", "", chess.Sq(6, 4), chess.Sq(4, 4))
	expectEvents(t, out.take("c1"), chessdto.EventMoveMade)
}

func TestRejoinSameSessionResendsAssignment(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("c1", "g1")
	c.Join("c2", "g1")
	out.take("c1")
	out.take("c2")

	c.Join("c2", "g1")
	f := out.take("c2")
	expectEvents(t, f, chessdto.EventPlayerAssigned)
	if got := assignedColor(t, f); got != chess.Black {
		t.Fatalf("re-join changed color to %s", got)
	}
	expectEvents(t, out.take("c1"))
	if s, _ := c.Registry().Get("g1"); s.Size() != 2 {
		t.Fatalf("re-join changed membership")
	}
}

func TestJoinOtherSessionLeavesPrevious(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("c1", "g1")
	c.Join("c1", "g2")
	out.take("c1")

	if _, ok := c.Registry().Get("g1"); ok {
		t.Fatalf("abandoned session should be deleted")
	}
	s, ok := c.Registry().SessionOf("c1")
	if !ok || s.ID != "g2" {
		t.Fatalf("connection not moved to g2")
	}
}

func TestJoinFullSessionKeepsPreviousMembership(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("a", "full")
	c.Join("b", "full")
	c.Join("c1", "mine")
	c.Join("c1", "full")

	expectEvents(t, out.take("c1"), chessdto.EventPlayerAssigned, chessdto.EventGameUpdate, chessdto.EventGameFull)
	s, ok := c.Registry().SessionOf("c1")
	if !ok || s.ID != "mine" {
		t.Fatalf("connection lost its session after a full join")
	}
}

func TestMoveTurnAndValidity(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	c.Join("b", "g1")
	out.take("w")
	out.take("b")

	c.Move("b", "g1", chess.Sq(1, 4), chess.Sq(3, 4))
	f := out.take("b")
	expectEvents(t, f, chessdto.EventInvalidMove)
	var reason string
	decodeData(t, f[0], &reason)
	if reason != "Not your turn" {
		t.Fatalf("reason: %q", reason)
	}
	expectEvents(t, out.take("w"))

	c.Move("w", "g1", chess.Sq(6, 4), chess.Sq(3, 4))
	f = out.take("w")
	expectEvents(t, f, chessdto.EventInvalidMove)
	decodeData(t, f[0], &reason)
	if reason != "Invalid move" {
		t.Fatalf("reason: %q", reason)
	}
	expectEvents(t, out.take("b"))

	c.Move("w", "g1", chess.Sq(6, 4), chess.Sq(4, 4))
	for _, conn := range []string{"w", "b"} {
		f = out.take(conn)
		expectEvents(t, f, chessdto.EventMoveMade)
		var mm chessdto.MoveMade
		decodeData(t, f[0], &mm)
		if mm.From != chess.Sq(6, 4) || mm.To != chess.Sq(4, 4) {
			t.Fatalf("move-made coordinates: %+v", mm)
		}
		if mm.GameState.CurrentPlayer != chess.Black || len(mm.GameState.MoveHistory) != 1 {
			t.Fatalf("move-made state: %+v", mm.GameState)
		}
	}
}

func TestMoveIgnoresStrangersAndUnknownSessions(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	out.take("w")

	c.Move("x", "g1", chess.Sq(6, 4), chess.Sq(4, 4))
	c.Move("w", "nope", chess.Sq(6, 4), chess.Sq(4, 4))
	c.Restart("w", "nope")
	expectEvents(t, out.take("x"))
	expectEvents(t, out.take("w"))

	s, _ := c.Registry().Get("g1")
	if s.Game.Plies() != 0 {
		t.Fatalf("ignored move changed the game")
	}
}

func TestMoveAfterCheckmateIsRejected(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	c.Join("b", "g1")

	moves := []struct {
		conn     string
		from, to chess.Square
	}{
		{"w", chess.Sq(6, 4), chess.Sq(4, 4)},
		{"b", chess.Sq(1, 4), chess.Sq(3, 4)},
		{"w", chess.Sq(7, 5), chess.Sq(4, 2)},
		{"b", chess.Sq(0, 1), chess.Sq(2, 2)},
		{"w", chess.Sq(7, 3), chess.Sq(3, 7)},
		{"b", chess.Sq(0, 6), chess.Sq(2, 5)},
		{"w", chess.Sq(3, 7), chess.Sq(1, 5)},
	}
	for _, m := range moves {
		c.Move(m.conn, "g1", m.from, m.to)
	}
	s, _ := c.Registry().Get("g1")
	if s.Game.Status() != chess.StatusCheckmate {
		t.Fatalf("status: %s", s.Game.Status())
	}
	out.take("w")
	out.take("b")

	c.Move("b", "g1", chess.Sq(1, 0), chess.Sq(2, 0))
	f := out.take("b")
	expectEvents(t, f, chessdto.EventInvalidMove)
	var reason string
	decodeData(t, f[0], &reason)
	if reason != "Game is over" {
		t.Fatalf("reason: %q", reason)
	}
}

func TestRestartResetsAndBroadcasts(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	c.Join("b", "g1")
	c.Move("w", "g1", chess.Sq(6, 4), chess.Sq(4, 4))
	out.take("w")
	out.take("b")

	c.Restart("b", "g1")
	fresh := chess.NewGame().Snapshot()
	for _, conn := range []string{"w", "b"} {
		f := out.take(conn)
		expectEvents(t, f, chessdto.EventGameRestarted)
		var st chess.GameState
		decodeData(t, f[0], &st)
		if st.GameStatus != chess.StatusWaiting || st.CurrentPlayer != chess.White || len(st.MoveHistory) != 0 || st.LastMove != nil {
			t.Fatalf("restarted state: %+v", st)
		}
		if !reflect.DeepEqual(st.Board, fresh.Board) {
			t.Fatalf("board not reset")
		}
	}
}

func TestDisconnectLastMemberDeletesSession(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	c.Move("w", "g1", chess.Sq(6, 4), chess.Sq(4, 4))
	out.take("w")

	c.Leave("w")
	if _, ok := c.Registry().Get("g1"); ok {
		t.Fatalf("empty session survived")
	}
	if c.Registry().Len() != 0 {
		t.Fatalf("registry not empty")
	}

	c.Join("n", "g1")
	f := out.take("n")
	var p chessdto.PlayerAssigned
	decodeData(t, f[0], &p)
	if p.Color != chess.White || len(p.GameState.MoveHistory) != 0 || p.GameState.Board[6][4] == nil {
		t.Fatalf("re-created session reused the old game: %+v", p.GameState)
	}
}

func TestDisconnectNotifiesRemainingMember(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.Join("w", "g1")
	c.Join("b", "g1")
	c.Move("w", "g1", chess.Sq(6, 4), chess.Sq(4, 4))
	out.take("w")
	out.take("b")

	c.Leave("w")
	f := out.take("b")
	expectEvents(t, f, chessdto.EventPlayerLeft)
	if len(f[0].Data) != 0 {
		t.Fatalf("player-left carries data")
	}
	s, ok := c.Registry().Get("g1")
	if !ok || s.Size() != 1 {
		t.Fatalf("session should keep one member")
	}
	if s.Game.Status() != chess.StatusInProgress {
		t.Fatalf("server status changed on disconnect: %s", s.Game.Status())
	}

	// the free color goes to the newcomer
	c.Join("n", "g1")
	if got := assignedColor(t, out.take("n")); got != chess.White {
		t.Fatalf("newcomer color: %s", got)
	}

	c.Leave("unknown")
}

func TestLobbyFollowsMembership(t *testing.T) {
	c, _, n := newTestCoordinator(t)
	c.Join("a", "g1")
	c.Join("b", "g1")
	c.Leave("b")
	c.Leave("a")

	want := []string{"open:g1", "close:g1", "open:g1", "close:g1"}
	if !reflect.DeepEqual(n.ops, want) {
		t.Fatalf("lobby ops: got %v want %v", n.ops, want)
	}
}

type fixedTexts map[string]string

func (f fixedTexts) Text(key, fallback string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return fallback
}

func TestRejectReasonComesFromTexts(t *testing.T) {
	out := newRecordingOutbox()
	c := New(Options{Outbox: out, Texts: fixedTexts{"move.invalid": "Illegal"}})
	c.Join("w", "")
	out.take("w")

	c.Move("w", "", chess.Sq(6, 4), chess.Sq(2, 4))
	f := out.take("w")
	var reason string
	decodeData(t, f[0], &reason)
	if reason != "Illegal" {
		t.Fatalf("reason: %q", reason)
	}
}

func TestHandleDropsMalformedPayload(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	c.handle("c1", chessdto.Envelope{Event: chessdto.EventJoinGame, Data: json.RawMessage(`{"gameId":`)})
	c.handle("c1", chessdto.Envelope{Event: "chat", Data: json.RawMessage(`"hi"`)})
	expectEvents(t, out.take("c1"))
	if c.Registry().Len() != 0 {
		t.Fatalf("malformed frame created a session")
	}

	c.handle("c1", chessdto.Envelope{Event: chessdto.EventJoinGame, Data: json.RawMessage(`"g9"`)})
	expectEvents(t, out.take("c1"), chessdto.EventPlayerAssigned, chessdto.EventGameUpdate)
	c.handle("c1", chessdto.Envelope{Event: chessdto.EventMakeMove, Data: json.RawMessage(`{"gameId":"g9","from":[6,0],"to":[5,0]}`)})
	expectEvents(t, out.take("c1"), chessdto.EventMoveMade)
	c.handle("c1", chessdto.Envelope{Event: chessdto.EventRestartGame, Data: json.RawMessage(`"g9"`)})
	expectEvents(t, out.take("c1"), chessdto.EventGameRestarted)
}

func TestRunLoopDispatchAndQuery(t *testing.T) {
	c, out, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	if err := c.Dispatch(ctx, "c1", chessdto.Envelope{Event: chessdto.EventJoinGame, Data: json.RawMessage(`"loop"`)}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	var size int
	if err := c.Query(ctx, func(r *Registry) {
		if s, ok := r.Get("loop"); ok {
			size = s.Size()
		}
	}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if size != 1 {
		t.Fatalf("size after join: %d", size)
	}
	expectEvents(t, out.take("c1"), chessdto.EventPlayerAssigned, chessdto.EventGameUpdate)

	if err := c.Disconnect("c1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	var sessions int
	_ = c.Query(ctx, func(r *Registry) { sessions = r.Len() })
	if sessions != 0 {
		t.Fatalf("sessions after disconnect: %d", sessions)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	if err := c.Dispatch(context.Background(), "c1", chessdto.Envelope{Event: chessdto.EventJoinGame}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Dispatch after stop: %v", err)
	}
}
