package chess

// Game owns one board and its history. It is not safe for concurrent use;
// the session coordinator serialises every call.
type Game struct {
	board         Board
	currentPlayer Color
	status        Status
	lastMove      *Move
	history       []Move
}

// NewGame returns a game in the initial position, waiting for players.
func NewGame() *Game {
	g := &Game{}
	g.Reset()
	return g
}

// Reset restores the initial board, hands the move to white and clears the
// history.
func (g *Game) Reset() {
	g.board = InitialBoard()
	g.currentPlayer = White
	g.status = StatusWaiting
	g.lastMove = nil
	g.history = nil
}

func (g *Game) CurrentPlayer() Color { return g.currentPlayer }
func (g *Game) Status() Status       { return g.status }
func (g *Game) Plies() int           { return len(g.history) }

// IsValidMove checks bounds, ownership of the origin, the destination not
// holding one of mover's pieces, and the piece's movement rule. It does not
// check king safety.
func (g *Game) IsValidMove(from, to Square, mover Color) bool {
	return validMove(&g.board, from, to, mover)
}

// IsInCheck reports whether c's king is attacked on the current board.
func (g *Game) IsInCheck(c Color) bool {
	return inCheck(&g.board, c)
}

// ApplyMove commits the move if it is valid and does not leave mover's own
// king attacked. On commit the move is recorded, the turn passes and the
// status is recomputed for the new side to move.
func (g *Game) ApplyMove(from, to Square, mover Color) bool {
	if !g.IsValidMove(from, to, mover) {
		return false
	}
	next := g.board.withMove(from, to)
	if inCheck(&next, mover) {
		return false
	}

	mv := Move{From: from, To: to, Piece: *g.board.At(from)}
	if captured := g.board.At(to); captured != nil {
		c := *captured
		mv.CapturedPiece = &c
	}

	g.board = next
	g.history = append(g.history, mv)
	last := mv
	g.lastMove = &last
	g.currentPlayer = g.currentPlayer.Opponent()
	g.status = evaluate(g.board, g.currentPlayer, len(g.history))
	return true
}

// Snapshot returns a copy of the observable state. The board is copied by
// value and the history slice is cloned, so callers may keep it.
func (g *Game) Snapshot() GameState {
	history := make([]Move, len(g.history))
	copy(history, g.history)

	var last *Move
	if g.lastMove != nil {
		mv := *g.lastMove
		last = &mv
	}
	return GameState{
		Board:         g.board,
		CurrentPlayer: g.currentPlayer,
		GameStatus:    g.status,
		LastMove:      last,
		MoveHistory:   history,
	}
}
