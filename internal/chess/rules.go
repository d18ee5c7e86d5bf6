package chess

// CanReach reports whether p standing on from can geometrically reach to on
// board b. It checks shape, sliding obstruction and the pawn's occupancy
// rules; ownership of the destination and king safety are not its concern.
// Both squares must be on the board.
func CanReach(p Piece, from, to Square, b *Board) bool {
	rowDiff := abs(to.Row() - from.Row())
	colDiff := abs(to.Col() - from.Col())

	switch p.Type {
	case Pawn:
		return pawnCanReach(p.Color, from, to, b)
	case Rook:
		return (rowDiff == 0 || colDiff == 0) && pathClear(from, to, b)
	case Knight:
		return (rowDiff == 2 && colDiff == 1) || (rowDiff == 1 && colDiff == 2)
	case Bishop:
		return rowDiff == colDiff && pathClear(from, to, b)
	case Queen:
		return (rowDiff == colDiff || rowDiff == 0 || colDiff == 0) && pathClear(from, to, b)
	case King:
		return rowDiff <= 1 && colDiff <= 1
	}
	return false
}

// pawnDirection is -1 for white (toward row 0) and +1 for black.
func pawnDirection(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// The two-step advance only requires an empty destination; the square
// jumped over is not inspected.
func pawnCanReach(c Color, from, to Square, b *Board) bool {
	dir := pawnDirection(c)
	rowDiff := to.Row() - from.Row()
	colDiff := abs(to.Col() - from.Col())
	target := b.At(to)

	if colDiff == 0 && target == nil {
		if rowDiff == dir {
			return true
		}
		if from.Row() == pawnStartRow(c) && rowDiff == 2*dir {
			return true
		}
	}
	// diagonal capture; no en passant
	return colDiff == 1 && rowDiff == dir && target != nil
}

// pathClear walks the straight or diagonal line strictly between from and to.
func pathClear(from, to Square, b *Board) bool {
	rowStep := sign(to.Row() - from.Row())
	colStep := sign(to.Col() - from.Col())

	row, col := from.Row()+rowStep, from.Col()+colStep
	for row != to.Row() || col != to.Col() {
		if b[row][col] != nil {
			return false
		}
		row += rowStep
		col += colStep
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
