package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/park285/cheese-duel/internal/lobby"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"go.uber.org/zap"
)

var (
	ErrStopped = errors.New("session coordinator stopped")
)

// Outbox delivers outbound envelopes to one connection. Send must not block
// the caller for long; the transport owns buffering.
type Outbox interface {
	Send(connID string, env chessdto.Envelope)
}

// Notifier learns which sessions are waiting for an opponent.
type Notifier interface {
	Open(e lobby.Entry)
	Close(sessionID string)
}

// Texts resolves human-readable reasons by catalog key.
type Texts interface {
	Text(key, fallback string) string
}

type Options struct {
	Outbox           Outbox
	Notifier         Notifier // optional
	Texts            Texts    // optional
	DefaultSessionID string
	QueueSize        int
	Now              func() time.Time
}

type eventKind int

const (
	evInbound eventKind = iota
	evDisconnect
	evQuery
)

type event struct {
	kind   eventKind
	connID string
	env    chessdto.Envelope
	query  func(*Registry)
	done   chan struct{}
}

// Coordinator owns the Registry and serialises every inbound event through
// a single loop, so engines are never touched concurrently.
type Coordinator struct {
	reg       *Registry
	out       Outbox
	lobby     Notifier
	texts     Texts
	defaultID string
	now       func() time.Time

	events  chan event
	stopped chan struct{}
}

func New(opts Options) *Coordinator {
	size := opts.QueueSize
	if size <= 0 {
		size = 256
	}
	defaultID := strings.TrimSpace(opts.DefaultSessionID)
	if defaultID == "" {
		defaultID = "default"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		reg:       NewRegistry(),
		out:       opts.Outbox,
		lobby:     opts.Notifier,
		texts:     opts.Texts,
		defaultID: defaultID,
		now:       now,
		events:    make(chan event, size),
		stopped:   make(chan struct{}),
	}
}

// Registry exposes the registry for synchronous callers (tests, Query closures).
func (c *Coordinator) Registry() *Registry { return c.reg }

// Run processes events until ctx is cancelled. It must be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.process(ev)
		}
	}
}

func (c *Coordinator) process(ev event) {
	switch ev.kind {
	case evInbound:
		c.handle(ev.connID, ev.env)
	case evDisconnect:
		c.Leave(ev.connID)
	case evQuery:
		ev.query(c.reg)
		close(ev.done)
	}
}

// Dispatch queues an inbound envelope from connID.
func (c *Coordinator) Dispatch(ctx context.Context, connID string, env chessdto.Envelope) error {
	return c.enqueue(ctx, event{kind: evInbound, connID: connID, env: env})
}

// Disconnect queues the removal of connID. It waits for queue space rather
// than dropping, since membership must always be cleaned up.
func (c *Coordinator) Disconnect(connID string) error {
	return c.enqueue(context.Background(), event{kind: evDisconnect, connID: connID})
}

// Query runs fn on the loop and waits for it. fn must not retain the registry.
func (c *Coordinator) Query(ctx context.Context, fn func(*Registry)) error {
	done := make(chan struct{})
	if err := c.enqueue(ctx, event{kind: evQuery, query: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Coordinator) enqueue(ctx context.Context, ev event) error {
	select {
	case <-c.stopped:
		return ErrStopped
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

// handle decodes one inbound envelope. Malformed payloads are logged and dropped.
func (c *Coordinator) handle(connID string, env chessdto.Envelope) {
	var err error
	switch env.Event {
	case chessdto.EventJoinGame:
		var p chessdto.JoinGame
		if err = chessdto.Decode(env, &p); err == nil {
			c.Join(connID, p.SessionID)
		}
	case chessdto.EventMakeMove:
		var p chessdto.MakeMove
		if err = chessdto.Decode(env, &p); err == nil {
			c.Move(connID, p.SessionID, p.From, p.To)
		}
	case chessdto.EventRestartGame:
		var p chessdto.RestartGame
		if err = chessdto.Decode(env, &p); err == nil {
			c.Restart(connID, p.SessionID)
		}
	default:
		obslog.L().Debug("session_unknown_event", zap.String("conn_id", connID), zap.String("event", env.Event))
		return
	}
	if err != nil {
		obslog.L().Warn("session_bad_payload", zap.String("conn_id", connID), zap.String("event", env.Event), zap.Error(err))
	}
}

func (c *Coordinator) resolve(sessionID string) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	return c.defaultID
}

// Join binds connID to the session, creating it on first use. A third
// connection gets game-full and nothing changes.
func (c *Coordinator) Join(connID, sessionID string) {
	id := c.resolve(sessionID)

	cur, bound := c.reg.SessionOf(connID)
	if bound && cur.ID == id {
		color, _ := cur.Color(connID)
		c.send(connID, chessdto.EventPlayerAssigned, chessdto.PlayerAssigned{Color: color, GameState: cur.Game.Snapshot()})
		return
	}

	s, created := c.reg.GetOrCreate(id)
	if s.Size() >= 2 {
		c.send(connID, chessdto.EventGameFull, nil)
		obslog.L().Info("session_full", zap.String("session_id", id), zap.String("conn_id", connID))
		return
	}
	// a connection plays in one session at a time
	if bound {
		c.Leave(connID)
	}

	color := s.freeColor()
	c.reg.Bind(s, connID, color)

	state := s.Game.Snapshot()
	c.send(connID, chessdto.EventPlayerAssigned, chessdto.PlayerAssigned{Color: color, GameState: state})
	c.broadcast(s, chessdto.EventGameUpdate, state)
	c.publish(s)

	obslog.L().Info("session_join",
		zap.String("session_id", id),
		zap.String("conn_id", connID),
		zap.String("color", string(color)),
		zap.Bool("created", created),
		zap.Int("members", s.Size()))
}

// Move applies a move for connID. Unknown sessions and non-members are
// ignored; rule violations are answered to the requester only.
func (c *Coordinator) Move(connID, sessionID string, from, to chess.Square) {
	s, ok := c.reg.Get(c.resolve(sessionID))
	if !ok {
		return
	}
	color, ok := s.Color(connID)
	if !ok {
		return
	}

	if s.Game.CurrentPlayer() != color {
		c.reject(s, connID, "move.not_your_turn", "Not your turn")
		return
	}
	if s.Game.Status().Terminal() {
		c.reject(s, connID, "move.game_over", "Game is over")
		return
	}
	if !s.Game.ApplyMove(from, to, color) {
		c.reject(s, connID, "move.invalid", "Invalid move")
		return
	}

	state := s.Game.Snapshot()
	c.broadcast(s, chessdto.EventMoveMade, chessdto.MoveMade{From: from, To: to, GameState: state})
	obslog.L().Info("session_move",
		zap.String("session_id", s.ID),
		zap.String("conn_id", connID),
		zap.String("color", string(color)),
		zap.Ints("from", from[:]),
		zap.Ints("to", to[:]),
		zap.String("status", string(state.GameStatus)),
		zap.Int("ply", len(state.MoveHistory)))
}

// Restart resets the session's game. Unknown sessions are ignored.
func (c *Coordinator) Restart(connID, sessionID string) {
	s, ok := c.reg.Get(c.resolve(sessionID))
	if !ok {
		return
	}
	s.Game.Reset()
	c.broadcast(s, chessdto.EventGameRestarted, s.Game.Snapshot())
	obslog.L().Info("session_restart", zap.String("session_id", s.ID), zap.String("conn_id", connID))
}

// Leave removes connID from its session. An emptied session is deleted
// with its game; otherwise the remaining member is told its opponent left.
// The server-side status is left as it was.
func (c *Coordinator) Leave(connID string) {
	s, ok := c.reg.Unbind(connID)
	if !ok {
		return
	}
	if s.Size() == 0 {
		c.reg.Delete(s.ID)
	} else {
		c.broadcast(s, chessdto.EventPlayerLeft, nil)
	}
	c.publish(s)
	obslog.L().Info("session_leave",
		zap.String("session_id", s.ID),
		zap.String("conn_id", connID),
		zap.Int("members", s.Size()))
}

func (c *Coordinator) reject(s *Session, connID, key, fallback string) {
	reason := fallback
	if c.texts != nil {
		reason = c.texts.Text(key, fallback)
	}
	c.send(connID, chessdto.EventInvalidMove, reason)
	obslog.L().Debug("session_move_rejected", zap.String("session_id", s.ID), zap.String("conn_id", connID), zap.String("reason", key))
}

// publish keeps the lobby in step with membership: one member means open.
func (c *Coordinator) publish(s *Session) {
	if c.lobby == nil {
		return
	}
	if s.Size() == 1 {
		c.lobby.Open(lobby.Entry{SessionID: s.ID, OpenedAt: c.now()})
		return
	}
	c.lobby.Close(s.ID)
}

func (c *Coordinator) broadcast(s *Session, event string, data any) {
	env, err := chessdto.NewEnvelope(event, data)
	if err != nil {
		obslog.L().Error("session_encode_error", zap.String("event", event), zap.Error(err))
		return
	}
	for _, connID := range s.Connections() {
		c.out.Send(connID, env)
	}
}

func (c *Coordinator) send(connID, event string, data any) {
	env, err := chessdto.NewEnvelope(event, data)
	if err != nil {
		obslog.L().Error("session_encode_error", zap.String("event", event), zap.Error(err))
		return
	}
	c.out.Send(connID, env)
}
