package chess

import (
	"reflect"
	"testing"
)

func gameFrom(toMove Color, pieces map[Square]Piece) *Game {
	g := NewGame()
	g.board = boardWith(pieces)
	g.currentPlayer = toMove
	g.status = StatusInProgress
	return g
}

type ply struct {
	from, to Square
}

func play(t *testing.T, g *Game, moves []ply) {
	t.Helper()
	for i, m := range moves {
		mover := g.CurrentPlayer()
		if !g.ApplyMove(m.from, m.to, mover) {
			t.Fatalf("ply %d %v -> %v rejected for %s", i+1, m.from, m.to, mover)
		}
	}
}

func TestNewGameInitialState(t *testing.T) {
	g := NewGame()
	st := g.Snapshot()
	if st.CurrentPlayer != White {
		t.Fatalf("current player: got %s", st.CurrentPlayer)
	}
	if st.GameStatus != StatusWaiting {
		t.Fatalf("status: got %s", st.GameStatus)
	}
	if st.LastMove != nil || len(st.MoveHistory) != 0 {
		t.Fatalf("fresh game carries history: %+v", st)
	}
	if p := st.Board[7][4]; p == nil || p.Type != King || p.Color != White {
		t.Fatalf("white king missing from (7,4): %+v", p)
	}
	if p := st.Board[0][3]; p == nil || p.Type != Queen || p.Color != Black {
		t.Fatalf("black queen missing from (0,3): %+v", p)
	}
	for row := 2; row < 6; row++ {
		for col := 0; col < 8; col++ {
			if st.Board[row][col] != nil {
				t.Fatalf("square (%d,%d) not empty", row, col)
			}
		}
	}
}

func TestApplyMoveRecordsHistoryAndFlipsTurn(t *testing.T) {
	g := NewGame()
	if !g.ApplyMove(Sq(6, 4), Sq(4, 4), White) {
		t.Fatalf("e2-e4 rejected")
	}
	if g.CurrentPlayer() != Black {
		t.Fatalf("turn did not pass to black")
	}
	if g.Status() != StatusInProgress {
		t.Fatalf("status: got %s", g.Status())
	}
	st := g.Snapshot()
	if st.Board[6][4] != nil || st.Board[4][4] == nil {
		t.Fatalf("pawn did not move")
	}
	if len(st.MoveHistory) != 1 || st.LastMove == nil {
		t.Fatalf("history not recorded: %+v", st)
	}
	want := Move{From: Sq(6, 4), To: Sq(4, 4), Piece: Piece{Type: Pawn, Color: White}}
	if !reflect.DeepEqual(*st.LastMove, want) || !reflect.DeepEqual(st.MoveHistory[0], want) {
		t.Fatalf("recorded move: got %+v", *st.LastMove)
	}
}

func TestApplyMoveRejectsWrongSide(t *testing.T) {
	g := NewGame()
	before := g.Snapshot()
	if g.ApplyMove(Sq(1, 4), Sq(3, 4), White) {
		t.Fatalf("white moved a black piece")
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatalf("rejected move changed the game")
	}
}

func TestApplyMoveRecordsCapture(t *testing.T) {
	g := NewGame()
	play(t, g, []ply{
		{Sq(6, 4), Sq(4, 4)},
		{Sq(1, 3), Sq(3, 3)},
		{Sq(4, 4), Sq(3, 3)},
	})
	last := g.Snapshot().LastMove
	if last == nil || last.CapturedPiece == nil {
		t.Fatalf("capture not recorded: %+v", last)
	}
	if *last.CapturedPiece != (Piece{Type: Pawn, Color: Black}) {
		t.Fatalf("captured piece: got %+v", *last.CapturedPiece)
	}
}

func TestPinnedPieceCannotMove(t *testing.T) {
	g := gameFrom(White, map[Square]Piece{
		Sq(7, 4): {Type: King, Color: White},
		Sq(5, 4): {Type: Knight, Color: White},
		Sq(0, 4): {Type: Rook, Color: Black},
		Sq(0, 0): {Type: King, Color: Black},
	})
	if !g.IsValidMove(Sq(5, 4), Sq(3, 3), White) {
		t.Fatalf("knight move should pass the geometric check")
	}
	before := g.Snapshot()
	if g.ApplyMove(Sq(5, 4), Sq(3, 3), White) {
		t.Fatalf("pinned knight moved and exposed the king")
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatalf("rejected move changed the game")
	}
}

func TestKingCannotStepIntoAttack(t *testing.T) {
	g := gameFrom(White, map[Square]Piece{
		Sq(7, 4): {Type: King, Color: White},
		Sq(0, 3): {Type: Rook, Color: Black},
		Sq(0, 0): {Type: King, Color: Black},
	})
	if g.ApplyMove(Sq(7, 4), Sq(7, 3), White) {
		t.Fatalf("king walked onto an attacked file")
	}
	if !g.ApplyMove(Sq(7, 4), Sq(7, 5), White) {
		t.Fatalf("safe king move rejected")
	}
}

func TestIsInCheck(t *testing.T) {
	g := gameFrom(White, map[Square]Piece{
		Sq(7, 4): {Type: King, Color: White},
		Sq(5, 0): {Type: Rook, Color: White},
		Sq(0, 4): {Type: King, Color: Black},
	})
	if !g.ApplyMove(Sq(5, 0), Sq(5, 4), White) {
		t.Fatalf("rook move rejected")
	}
	if !g.IsInCheck(Black) {
		t.Fatalf("black should be in check")
	}
	if g.IsInCheck(White) {
		t.Fatalf("white should not be in check")
	}
	if g.Status() != StatusCheck {
		t.Fatalf("status: got %s", g.Status())
	}
}

func TestMissingKingIsNeverInCheck(t *testing.T) {
	g := gameFrom(White, map[Square]Piece{
		Sq(0, 0): {Type: Queen, Color: Black},
		Sq(7, 7): {Type: Rook, Color: White},
	})
	if g.IsInCheck(White) || g.IsInCheck(Black) {
		t.Fatalf("a side without a king reported check")
	}
}

func TestScholarsMate(t *testing.T) {
	g := NewGame()
	play(t, g, []ply{
		{Sq(6, 4), Sq(4, 4)}, // e4
		{Sq(1, 4), Sq(3, 4)}, // e5
		{Sq(7, 5), Sq(4, 2)}, // Bc4
		{Sq(0, 1), Sq(2, 2)}, // Nc6
		{Sq(7, 3), Sq(3, 7)}, // Qh5
		{Sq(0, 6), Sq(2, 5)}, // Nf6
		{Sq(3, 7), Sq(1, 5)}, // Qxf7#
	})
	if g.Status() != StatusCheckmate {
		t.Fatalf("status: got %s", g.Status())
	}
	if g.CurrentPlayer() != Black {
		t.Fatalf("mated side should be to move, got %s", g.CurrentPlayer())
	}
}

// The queen on h5 is screened from e8 by the f7 pawn, so this opening is
// not mate.
func TestQueenSortieBehindPawnIsNotMate(t *testing.T) {
	g := NewGame()
	play(t, g, []ply{
		{Sq(6, 4), Sq(4, 4)},
		{Sq(1, 3), Sq(3, 3)},
		{Sq(7, 5), Sq(4, 2)},
		{Sq(0, 6), Sq(2, 5)},
		{Sq(7, 3), Sq(3, 7)},
	})
	if g.CurrentPlayer() != Black {
		t.Fatalf("current player: got %s", g.CurrentPlayer())
	}
	if g.Status() != StatusInProgress {
		t.Fatalf("status: got %s", g.Status())
	}
}

func TestStalemate(t *testing.T) {
	g := gameFrom(White, map[Square]Piece{
		Sq(0, 0): {Type: King, Color: Black},
		Sq(3, 1): {Type: Queen, Color: White},
		Sq(2, 2): {Type: King, Color: White},
	})
	if !g.ApplyMove(Sq(3, 1), Sq(2, 1), White) {
		t.Fatalf("queen move rejected")
	}
	if g.IsInCheck(Black) {
		t.Fatalf("black should not be in check")
	}
	if g.Status() != StatusStalemate {
		t.Fatalf("status: got %s", g.Status())
	}
}

func TestDrawByMaterial(t *testing.T) {
	tests := []struct {
		name   string
		pieces map[Square]Piece
		move   ply
	}{
		{
			name: "bare kings",
			pieces: map[Square]Piece{
				Sq(7, 4): {Type: King, Color: White},
				Sq(6, 4): {Type: Rook, Color: Black},
				Sq(0, 4): {Type: King, Color: Black},
			},
			move: ply{Sq(7, 4), Sq(6, 4)},
		},
		{
			name: "knight against bare king",
			pieces: map[Square]Piece{
				Sq(7, 4): {Type: King, Color: White},
				Sq(5, 5): {Type: Knight, Color: White},
				Sq(3, 4): {Type: Pawn, Color: Black},
				Sq(0, 0): {Type: King, Color: Black},
			},
			move: ply{Sq(5, 5), Sq(3, 4)},
		},
		{
			name: "bishop against bare king",
			pieces: map[Square]Piece{
				Sq(7, 7): {Type: King, Color: White},
				Sq(5, 2): {Type: Bishop, Color: White},
				Sq(3, 4): {Type: Rook, Color: Black},
				Sq(0, 0): {Type: King, Color: Black},
			},
			move: ply{Sq(5, 2), Sq(3, 4)},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := gameFrom(White, tt.pieces)
			if !g.ApplyMove(tt.move.from, tt.move.to, White) {
				t.Fatalf("capture rejected")
			}
			if g.Status() != StatusDraw {
				t.Fatalf("status: got %s", g.Status())
			}
		})
	}
}

func TestDrawByPlyCap(t *testing.T) {
	g := NewGame()
	shuffle := []ply{
		{Sq(7, 6), Sq(5, 5)},
		{Sq(0, 6), Sq(2, 5)},
		{Sq(5, 5), Sq(7, 6)},
		{Sq(2, 5), Sq(0, 6)},
	}
	for i := 0; i < MaxPlies; i++ {
		if g.Status().Terminal() {
			t.Fatalf("game ended early at ply %d with %s", i, g.Status())
		}
		m := shuffle[i%len(shuffle)]
		if !g.ApplyMove(m.from, m.to, g.CurrentPlayer()) {
			t.Fatalf("ply %d rejected", i+1)
		}
	}
	if g.Plies() != MaxPlies {
		t.Fatalf("plies: got %d", g.Plies())
	}
	if g.Status() != StatusDraw {
		t.Fatalf("status: got %s", g.Status())
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	g := NewGame()
	play(t, g, []ply{
		{Sq(6, 4), Sq(4, 4)},
		{Sq(1, 4), Sq(3, 4)},
	})
	g.Reset()
	if !reflect.DeepEqual(g.Snapshot(), NewGame().Snapshot()) {
		t.Fatalf("reset game differs from a new game")
	}
}

func TestSnapshotIsIdempotentAndDetached(t *testing.T) {
	g := NewGame()
	play(t, g, []ply{{Sq(6, 4), Sq(4, 4)}})

	a := g.Snapshot()
	b := g.Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("consecutive snapshots differ")
	}

	a.MoveHistory[0].To = Sq(0, 0)
	a.LastMove.To = Sq(0, 0)
	a.Board[4][4] = nil
	c := g.Snapshot()
	if !reflect.DeepEqual(b, c) {
		t.Fatalf("mutating a snapshot leaked into the game")
	}
}
