package chessdto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/park285/cheese-duel/internal/chess"
)

// Inbound event names.
const (
	EventJoinGame    = "join-game"
	EventMakeMove    = "make-move"
	EventRestartGame = "restart-game"
)

// Outbound event names.
const (
	EventPlayerAssigned = "player-assigned"
	EventGameUpdate     = "game-update"
	EventMoveMade       = "move-made"
	EventInvalidMove    = "invalid-move"
	EventGameFull       = "game-full"
	EventPlayerLeft     = "player-left"
	EventGameRestarted  = "game-restarted"
)

// Envelope is the frame exchanged over the socket in both directions.
// Data is omitted for events without payload.
type Envelope struct {
	Event string          `json:"event" validate:"required,max=32"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data (nil for payload-less events).
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

// SessionRef names a session. On the wire it is either a bare JSON string
// or an object {"gameId": "..."}; both decode to the same value.
type SessionRef struct {
	SessionID string `json:"gameId" validate:"omitempty,max=64,printascii"`
}

func (r *SessionRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		r.SessionID = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		r.SessionID = strings.TrimSpace(s)
		return nil
	}
	var obj struct {
		SessionID string `json:"gameId"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.SessionID = strings.TrimSpace(obj.SessionID)
	return nil
}

// JoinGame is the join-game payload.
type JoinGame struct {
	SessionRef
}

// RestartGame is the restart-game payload.
type RestartGame struct {
	SessionRef
}

// MakeMove is the make-move payload.
type MakeMove struct {
	SessionID string       `json:"gameId" validate:"omitempty,max=64,printascii"`
	From      chess.Square `json:"from"`
	To        chess.Square `json:"to"`
}

// PlayerAssigned answers a successful join.
type PlayerAssigned struct {
	Color     chess.Color     `json:"color"`
	GameState chess.GameState `json:"gameState"`
}

// MoveMade is broadcast after a committed move.
type MoveMade struct {
	From      chess.Square    `json:"from"`
	To        chess.Square    `json:"to"`
	GameState chess.GameState `json:"gameState"`
}
