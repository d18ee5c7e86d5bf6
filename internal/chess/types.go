package chess

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// PieceType is one of the six movement classes.
type PieceType string

const (
	King   PieceType = "king"
	Queen  PieceType = "queen"
	Rook   PieceType = "rook"
	Bishop PieceType = "bishop"
	Knight PieceType = "knight"
	Pawn   PieceType = "pawn"
)

// Piece is an immutable value; identity is positional.
type Piece struct {
	Type  PieceType `json:"type"`
	Color Color     `json:"color"`
}

// Square is a zero-based (row, col) pair. Row 0 is black's home rank.
// It encodes on the wire as a two-element array.
type Square [2]int

func Sq(row, col int) Square { return Square{row, col} }

func (s Square) Row() int { return s[0] }
func (s Square) Col() int { return s[1] }

// InBounds reports whether the square lies on the 8x8 board.
func (s Square) InBounds() bool {
	return s[0] >= 0 && s[0] < 8 && s[1] >= 0 && s[1] < 8
}

// Move records one committed ply.
type Move struct {
	From          Square `json:"from"`
	To            Square `json:"to"`
	Piece         Piece  `json:"piece"`
	CapturedPiece *Piece `json:"capturedPiece,omitempty"`
}

// Status is the externally visible game status.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCheck      Status = "check"
	StatusCheckmate  Status = "checkmate"
	StatusStalemate  Status = "stalemate"
	StatusDraw       Status = "draw"
)

// Terminal reports whether no further moves may be accepted until a reset.
func (s Status) Terminal() bool {
	return s == StatusCheckmate || s == StatusStalemate || s == StatusDraw
}

// GameState is the snapshot published to participants.
type GameState struct {
	Board         Board  `json:"board"`
	CurrentPlayer Color  `json:"currentPlayer"`
	GameStatus    Status `json:"gameStatus"`
	LastMove      *Move  `json:"lastMove"`
	MoveHistory   []Move `json:"moveHistory"`
}
