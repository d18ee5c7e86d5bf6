// Package notation projects game snapshots onto the usual chess text
// formats: algebraic squares, FEN and SAN move lists.
package notation

import (
	"fmt"
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-duel/internal/chess"
)

// Square formats sq as "e2". Row 0 is rank 8.
func Square(sq chess.Square) string {
	if !sq.InBounds() {
		return "??"
	}
	return string(rune('a'+sq.Col())) + strconv.Itoa(8-sq.Row())
}

// ParseSquare accepts algebraic ("e2") or zero-based row,col ("6,4") form.
func ParseSquare(s string) (chess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if row, col, ok := strings.Cut(s, ","); ok {
		r, err1 := strconv.Atoi(strings.TrimSpace(row))
		c, err2 := strconv.Atoi(strings.TrimSpace(col))
		if err1 != nil || err2 != nil {
			return chess.Square{}, fmt.Errorf("bad square %q", s)
		}
		sq := chess.Sq(r, c)
		if !sq.InBounds() {
			return chess.Square{}, fmt.Errorf("square %q off board", s)
		}
		return sq, nil
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return chess.Square{}, fmt.Errorf("bad square %q", s)
	}
	return chess.Sq(8-int(s[1]-'0'), int(s[0]-'a')), nil
}

// UCI formats a move as "e2e4".
func UCI(m chess.Move) string {
	return Square(m.From) + Square(m.To)
}

var fenLetters = map[chess.PieceType]byte{
	chess.King:   'k',
	chess.Queen:  'q',
	chess.Rook:   'r',
	chess.Bishop: 'b',
	chess.Knight: 'n',
	chess.Pawn:   'p',
}

// FEN encodes the snapshot. Castling and en passant never apply, so those
// fields are "-"; the half-move clock is always 0.
func FEN(st chess.GameState) string {
	var b strings.Builder
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			p := st.Board[row][col]
			if p == nil {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			ch := fenLetters[p.Type]
			if p.Color == chess.White {
				ch -= 'a' - 'A'
			}
			b.WriteByte(ch)
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			b.WriteByte('/')
		}
	}

	side := "w"
	if st.CurrentPlayer == chess.Black {
		side = "b"
	}
	fullMove := len(st.MoveHistory)/2 + 1
	fmt.Fprintf(&b, " %s - - 0 %d", side, fullMove)
	return b.String()
}

// SAN replays history on a standard game and returns the SAN of each move.
// The rule set here is narrower than standard chess (no promotion, for one),
// so replay stops at the first move standard rules reject; complete is
// false in that case.
func SAN(history []chess.Move) (san []string, complete bool) {
	game := nchess.NewGame()
	san = make([]string, 0, len(history))
	for _, mv := range history {
		pos := game.Position()
		if err := game.PushNotationMove(UCI(mv), nchess.UCINotation{}, nil); err != nil {
			return san, false
		}
		moves := game.Moves()
		if len(moves) == 0 {
			return san, false
		}
		san = append(san, nchess.AlgebraicNotation{}.Encode(pos, moves[len(moves)-1]))
	}
	return san, true
}
