package notation

import (
	"reflect"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-duel/internal/chess"
)

func TestSquareRoundTrip(t *testing.T) {
	if got := Square(chess.Sq(6, 4)); got != "e2" {
		t.Fatalf("Square(6,4): %q", got)
	}
	if got := Square(chess.Sq(0, 0)); got != "a8" {
		t.Fatalf("Square(0,0): %q", got)
	}
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := chess.Sq(row, col)
			back, err := ParseSquare(Square(sq))
			if err != nil || back != sq {
				t.Fatalf("round trip %v: got %v err %v", sq, back, err)
			}
		}
	}
}

func TestParseSquareForms(t *testing.T) {
	tests := []struct {
		in   string
		want chess.Square
		ok   bool
	}{
		{"E4", chess.Sq(4, 4), true},
		{" 6, 4 ", chess.Sq(6, 4), true},
		{"h1", chess.Sq(7, 7), true},
		{"i1", chess.Square{}, false},
		{"a9", chess.Square{}, false},
		{"8,0", chess.Square{}, false},
		{"x,1", chess.Square{}, false},
		{"", chess.Square{}, false},
	}
	for _, tt := range tests {
		got, err := ParseSquare(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseSquare(%q) err=%v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseSquare(%q): got %v want %v", tt.in, got, tt.want)
		}
	}
}

func TestFEN(t *testing.T) {
	g := chess.NewGame()
	const initial = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"
	if got := FEN(g.Snapshot()); got != initial {
		t.Fatalf("initial FEN: %q", got)
	}

	g.ApplyMove(chess.Sq(6, 4), chess.Sq(4, 4), chess.White)
	g.ApplyMove(chess.Sq(1, 4), chess.Sq(3, 4), chess.Black)
	fen := FEN(g.Snapshot())
	if fen != "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w - - 0 2" {
		t.Fatalf("FEN after e4 e5: %q", fen)
	}
	if _, err := nchess.FEN(fen); err != nil {
		t.Fatalf("FEN rejected by parser: %v", err)
	}
}

func TestSANScholarsMate(t *testing.T) {
	g := chess.NewGame()
	plies := [][2]chess.Square{
		{chess.Sq(6, 4), chess.Sq(4, 4)},
		{chess.Sq(1, 4), chess.Sq(3, 4)},
		{chess.Sq(7, 5), chess.Sq(4, 2)},
		{chess.Sq(0, 1), chess.Sq(2, 2)},
		{chess.Sq(7, 3), chess.Sq(3, 7)},
		{chess.Sq(0, 6), chess.Sq(2, 5)},
		{chess.Sq(3, 7), chess.Sq(1, 5)},
	}
	for _, p := range plies {
		if !g.ApplyMove(p[0], p[1], g.CurrentPlayer()) {
			t.Fatalf("move %v rejected", p)
		}
	}
	san, complete := SAN(g.Snapshot().MoveHistory)
	if !complete {
		t.Fatalf("replay incomplete: %v", san)
	}
	want := []string{"e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#"}
	if !reflect.DeepEqual(san, want) {
		t.Fatalf("SAN: got %v want %v", san, want)
	}
}

func TestSANStopsAtNonStandardMove(t *testing.T) {
	history := []chess.Move{
		{From: chess.Sq(6, 3), To: chess.Sq(4, 3), Piece: chess.Piece{Type: chess.Pawn, Color: chess.White}},
		// two-step from a non-start square is not a legal standard move
		{From: chess.Sq(1, 4), To: chess.Sq(4, 4), Piece: chess.Piece{Type: chess.Pawn, Color: chess.Black}},
	}
	san, complete := SAN(history)
	if complete {
		t.Fatalf("replay should stop")
	}
	if len(san) != 1 || san[0] != "d4" {
		t.Fatalf("SAN: %v", san)
	}
}

func TestUCI(t *testing.T) {
	if got := UCI(chess.Move{From: chess.Sq(6, 4), To: chess.Sq(4, 4)}); got != "e2e4" {
		t.Fatalf("UCI: %q", got)
	}
}
