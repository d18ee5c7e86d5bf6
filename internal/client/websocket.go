package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-duel/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type EnvelopeCallback func(env chessdto.Envelope)

type StateCallback func(state State)

var ErrNotConnected = errors.New("websocket not connected")

type envelopeEntry struct {
	id       int
	callback EnvelopeCallback
}

type stateEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is a reconnecting game connection. Callbacks run on the
// reader goroutine and must not block.
type WebSocket struct {
	wsURL  string
	header http.Header

	conn   *websocket.Conn
	connM  sync.Mutex
	writeM sync.Mutex

	state  State
	stateM sync.RWMutex

	envCbs   []envelopeEntry
	stateCbs []stateEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

type WebSocketOption func(*WebSocket)

func WithHeader(h http.Header) WebSocketOption {
	return func(ws *WebSocket) { ws.header = h }
}

func WithPingInterval(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.pingInterval = d
		}
	}
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, opts ...WebSocketOption) *WebSocket {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	ws := &WebSocket{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
	}
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

func (ws *WebSocket) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

// Connect dials once. On failure a background reconnect is scheduled when
// reconnects are enabled, and the dial error is returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	ws.setState(StateConnecting)

	conn, err := ws.dial(ctx)
	if err != nil {
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	return conn, err
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(StateConnected)

	// per-connection context so a dead connection's pinger stops with it
	connCtx, connCancel := context.WithCancel(ws.rootCtx)
	ws.wg.Add(2)
	go ws.listen(connCtx, connCancel, conn)
	go ws.pingLoop(connCtx, conn)
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.connM.Lock()
	defer ws.connM.Unlock()
	return ws.conn
}

func (ws *WebSocket) listen(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer ws.wg.Done()
	defer cancel()
	for {
		var env chessdto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ws.isStopping() {
				return
			}
			ws.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			ws.setState(StateDisconnected)
			ws.scheduleReconnect()
			return
		}

		ws.cbM.RLock()
		callbacks := make([]envelopeEntry, len(ws.envCbs))
		copy(callbacks, ws.envCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(env)
			}
		}
	}
}

func (ws *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// closing makes the reader fail and drive the reconnect
				ws.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := ws.dial(ws.rootCtx)
			if err != nil {
				continue
			}
			ws.attach(conn)
			return
		}
		ws.setState(StateFailed)
	}()
}

// Send writes one envelope. Writes are serialised.
func (ws *WebSocket) Send(ctx context.Context, event string, data any) error {
	conn := ws.current()
	if conn == nil || ws.State() != StateConnected {
		return ErrNotConnected
	}
	env, err := chessdto.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(ctx, conn, env)
}

func (ws *WebSocket) OnEnvelope(cb EnvelopeCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.envCbs = append(ws.envCbs, envelopeEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveEnvelopeCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.envCbs {
		if cb.id == id {
			ws.envCbs = append(ws.envCbs[:i], ws.envCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	if conn := ws.current(); conn != nil {
		ws.dropConn(conn, websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.rootCancel()
		ws.setState(StateDisconnected)
		return nil
	}
}

// dropConn closes conn and forgets it if it is still the current connection.
func (ws *WebSocket) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	ws.connM.Lock()
	if ws.conn == conn {
		ws.conn = nil
	}
	ws.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	for k, vs := range ws.header {
		if strings.TrimSpace(k) == "" {
			continue
		}
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				hdr.Add(k, v)
			}
		}
	}
	return hdr
}
