package chess

// Board is an 8x8 grid of optional pieces indexed [row][col].
// It is a value type: assignment copies the grid, which is what the
// hypothetical-move helpers rely on.
type Board [8][8]*Piece

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// InitialBoard returns the standard starting position, black on rows 0-1.
func InitialBoard() Board {
	var b Board
	for col := 0; col < 8; col++ {
		b[0][col] = &Piece{Type: backRank[col], Color: Black}
		b[1][col] = &Piece{Type: Pawn, Color: Black}
		b[6][col] = &Piece{Type: Pawn, Color: White}
		b[7][col] = &Piece{Type: backRank[col], Color: White}
	}
	return b
}

// At returns the piece on sq, or nil for an empty or off-board square.
func (b *Board) At(sq Square) *Piece {
	if !sq.InBounds() {
		return nil
	}
	return b[sq.Row()][sq.Col()]
}

// Place puts p (nil clears) on sq.
func (b *Board) Place(sq Square, p *Piece) {
	if !sq.InBounds() {
		return
	}
	b[sq.Row()][sq.Col()] = p
}

// withMove returns a copy of b with the piece on from moved onto to,
// overwriting whatever stood there. b itself is not touched.
func (b Board) withMove(from, to Square) Board {
	next := b
	next[to.Row()][to.Col()] = next[from.Row()][from.Col()]
	next[from.Row()][from.Col()] = nil
	return next
}

func (b *Board) findKing(c Color) (Square, bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if p := b[row][col]; p != nil && p.Type == King && p.Color == c {
				return Sq(row, col), true
			}
		}
	}
	return Square{}, false
}

// count returns the pieces of color c and whether any of them is one of kinds.
func (b *Board) count(c Color, kinds ...PieceType) (n int, has bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p == nil || p.Color != c {
				continue
			}
			n++
			for _, k := range kinds {
				if p.Type == k {
					has = true
				}
			}
		}
	}
	return n, has
}
