package chess

// MaxPlies is the flat ply cap after which a game is scored as a draw.
// It stands in for the fifty-move rule and is never reset by captures
// or pawn moves.
const MaxPlies = 100

// validMove is the occupancy and geometry check shared by the engine and
// the move enumerator. King safety is checked separately.
func validMove(b *Board, from, to Square, mover Color) bool {
	if !from.InBounds() || !to.InBounds() {
		return false
	}
	p := b.At(from)
	if p == nil || p.Color != mover {
		return false
	}
	if t := b.At(to); t != nil && t.Color == mover {
		return false
	}
	return CanReach(*p, from, to, b)
}

// inCheck reports whether any opposing piece can reach c's king. A side
// without a king is never in check.
func inCheck(b *Board, c Color) bool {
	king, ok := b.findKing(c)
	if !ok {
		return false
	}
	opp := c.Opponent()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p == nil || p.Color != opp {
				continue
			}
			if CanReach(*p, Sq(row, col), king, b) {
				return true
			}
		}
	}
	return false
}

// legal combines validMove with the no-self-check rule, testing the move on
// a copy of the board.
func legal(b Board, from, to Square, mover Color) bool {
	if !validMove(&b, from, to, mover) {
		return false
	}
	next := b.withMove(from, to)
	return !inCheck(&next, mover)
}

// hasLegalMove tries every (from, to) pair for c's pieces.
func hasLegalMove(b Board, c Color) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p == nil || p.Color != c {
				continue
			}
			from := Sq(row, col)
			for toRow := 0; toRow < 8; toRow++ {
				for toCol := 0; toCol < 8; toCol++ {
					if legal(b, from, Sq(toRow, toCol), c) {
						return true
					}
				}
			}
		}
	}
	return false
}

// drawn checks, in order: bare kings, a lone minor piece against a lone
// piece, and the ply cap.
func drawn(b *Board, plies int) bool {
	white, whiteMinor := b.count(White, Bishop, Knight)
	black, blackMinor := b.count(Black, Bishop, Knight)

	if white == 1 && black == 1 {
		return true
	}
	if (white == 2 && whiteMinor && black == 1) || (black == 2 && blackMinor && white == 1) {
		return true
	}
	return plies >= MaxPlies
}

// evaluate classifies the position for the side about to move.
func evaluate(b Board, toMove Color, plies int) Status {
	if inCheck(&b, toMove) {
		if !hasLegalMove(b, toMove) {
			return StatusCheckmate
		}
		return StatusCheck
	}
	if !hasLegalMove(b, toMove) {
		return StatusStalemate
	}
	if drawn(&b, plies) {
		return StatusDraw
	}
	return StatusInProgress
}
