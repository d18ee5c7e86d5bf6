package session

import (
	"sort"

	"github.com/park285/cheese-duel/internal/chess"
)

// Session is one game plus its participants.
type Session struct {
	ID   string
	Game *chess.Game

	members map[string]chess.Color // connection id -> color
	order   []string               // connection ids in join order
}

func newSession(id string) *Session {
	return &Session{ID: id, Game: chess.NewGame(), members: make(map[string]chess.Color, 2)}
}

// Size is the number of bound connections.
func (s *Session) Size() int { return len(s.members) }

// Color returns the color assigned to connID.
func (s *Session) Color(connID string) (chess.Color, bool) {
	c, ok := s.members[connID]
	return c, ok
}

// Members returns a copy of the membership.
func (s *Session) Members() map[string]chess.Color {
	out := make(map[string]chess.Color, len(s.members))
	for k, v := range s.members {
		out[k] = v
	}
	return out
}

// Connections lists member connection ids in join order.
func (s *Session) Connections() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// freeColor returns white unless a member already holds it.
func (s *Session) freeColor() chess.Color {
	for _, c := range s.members {
		if c == chess.White {
			return chess.Black
		}
	}
	return chess.White
}

func (s *Session) bind(connID string, c chess.Color) {
	s.members[connID] = c
	s.order = append(s.order, connID)
}

func (s *Session) unbind(connID string) {
	delete(s.members, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Registry maps session ids to sessions and connections to the session
// they belong to. It has no lock: only the coordinator loop touches it.
type Registry struct {
	sessions map[string]*Session
	byConn   map[string]string
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session), byConn: make(map[string]string)}
}

func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// GetOrCreate returns the session, creating it with a fresh game when absent.
func (r *Registry) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s = newSession(id)
	r.sessions[id] = s
	return s, true
}

// Delete drops the session and any connection index entries pointing at it.
func (r *Registry) Delete(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	for connID := range s.members {
		delete(r.byConn, connID)
	}
	delete(r.sessions, id)
}

// SessionOf returns the session connID is bound to.
func (r *Registry) SessionOf(connID string) (*Session, bool) {
	id, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// Bind records connID as a member of s with color c.
func (r *Registry) Bind(s *Session, connID string, c chess.Color) {
	s.bind(connID, c)
	r.byConn[connID] = s.ID
}

// Unbind removes connID from its session and returns that session.
func (r *Registry) Unbind(connID string) (*Session, bool) {
	s, ok := r.SessionOf(connID)
	delete(r.byConn, connID)
	if !ok {
		return nil, false
	}
	s.unbind(connID)
	return s, true
}

func (r *Registry) Len() int { return len(r.sessions) }

// IDs returns session ids in lexical order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
