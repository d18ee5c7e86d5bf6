package chessdto

import "time"

// SessionSummary is returned by GET /sessions/{id}.
type SessionSummary struct {
	SessionID   string            `json:"sessionId"`
	Members     map[string]string `json:"members"` // connection id -> color
	Status      string            `json:"gameStatus"`
	ToMove      string            `json:"currentPlayer"`
	Plies       int               `json:"plies"`
	FEN         string            `json:"fen"`
	SAN         []string          `json:"san"`
	SANComplete bool              `json:"sanComplete"`
}

// LobbyEntry is one open session listed by GET /lobby.
type LobbyEntry struct {
	SessionID string    `json:"sessionId"`
	OpenedAt  time.Time `json:"openedAt"`
}

// Health is returned by GET /health.
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}
