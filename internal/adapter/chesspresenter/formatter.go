package chesspresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/pkg/chessdto"
)

const (
	ansiReset     = "\x1b[0m"
	ansiHighlight = "\x1b[7m"
	ansiBold      = "\x1b[1m"
)

// Renderer resolves catalog templates; *msgcat.Catalog satisfies it.
type Renderer interface {
	Render(key string, data any) (string, error)
}

// Formatter renders snapshots and client notices as terminal text.
type Formatter struct {
	texts Renderer
	color bool
}

func NewFormatter(texts Renderer, color bool) *Formatter {
	return &Formatter{texts: texts, color: color}
}

func (f *Formatter) text(key, fallback string, data any) string {
	if f == nil || f.texts == nil {
		return fallback
	}
	s, err := f.texts.Render(key, data)
	if err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimRight(s, "\n")
}

var pieceLetters = map[chess.PieceType]string{
	chess.King:   "k",
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
	chess.Pawn:   "p",
}

// Board draws the board with row 0 (rank 8) at the top. White pieces are
// upper case. With colour enabled the last move's squares are highlighted.
func (f *Formatter) Board(st chess.GameState) string {
	const files = "  a b c d e f g h"
	marked := map[chess.Square]bool{}
	if f.color && st.LastMove != nil {
		marked[st.LastMove.From] = true
		marked[st.LastMove.To] = true
	}

	var sb strings.Builder
	sb.WriteString(files)
	sb.WriteString("\n")
	for row := 0; row < 8; row++ {
		rank := 8 - row
		sb.WriteString(fmt.Sprintf("%d ", rank))
		for col := 0; col < 8; col++ {
			cell := "."
			if p := st.Board[row][col]; p != nil {
				cell = pieceLetters[p.Type]
				if p.Color == chess.White {
					cell = strings.ToUpper(cell)
				}
			}
			if marked[chess.Sq(row, col)] {
				cell = ansiHighlight + cell + ansiReset
			}
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%d\n", rank))
	}
	sb.WriteString(files)
	return sb.String()
}

func title(c chess.Color) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Status describes the game status from the snapshot. In checkmate the side
// to move is the one mated.
func (f *Formatter) Status(st chess.GameState) string {
	data := map[string]string{
		"ToMove": title(st.CurrentPlayer),
		"Winner": title(st.CurrentPlayer.Opponent()),
	}
	var s string
	switch st.GameStatus {
	case chess.StatusWaiting:
		s = f.text("status.waiting", "Waiting for an opponent", data)
	case chess.StatusCheck:
		s = f.text("status.check", data["ToMove"]+" is in check", data)
	case chess.StatusCheckmate:
		s = f.text("status.checkmate", "Checkmate. "+data["Winner"]+" wins", data)
	case chess.StatusStalemate:
		s = f.text("status.stalemate", "Stalemate", data)
	case chess.StatusDraw:
		s = f.text("status.draw", "Draw", data)
	default:
		s = f.text("status.in_progress", data["ToMove"]+" to move", data)
	}
	if f.color && st.GameStatus.Terminal() {
		return ansiBold + s + ansiReset
	}
	return s
}

// Move summarises a committed move, e.g. "White e2-e4" or "Black d8xh4".
func (f *Formatter) Move(from, to chess.Square, st chess.GameState) string {
	mover := st.CurrentPlayer.Opponent()
	sep := "-"
	if st.LastMove != nil && st.LastMove.CapturedPiece != nil {
		sep = "x"
	}
	return fmt.Sprintf("%s %s%s%s", title(mover), notation.Square(from), sep, notation.Square(to))
}

func (f *Formatter) Welcome(url string) string {
	return f.text("client.welcome", "Connected to "+url+".", map[string]string{"URL": url})
}

func (f *Formatter) Help() string {
	return f.text("client.help", "join [id] | move <from> <to> | restart | board | lobby | help | quit", nil)
}

func (f *Formatter) Assigned(c chess.Color, sessionID string) string {
	return f.text("client.assigned", fmt.Sprintf("You play %s in session %s.", c, sessionID),
		map[string]string{"Color": string(c), "Session": sessionID})
}

func (f *Formatter) Full() string { return f.text("client.full", "Session is full.", nil) }

func (f *Formatter) OpponentLeft() string {
	return f.text("client.opponent_left", "Your opponent left.", nil)
}

func (f *Formatter) Restarted() string {
	return f.text("client.restarted", "The game was restarted.", nil)
}

func (f *Formatter) Rejected(reason string) string {
	return f.text("client.rejected", "Rejected: "+reason, map[string]string{"Reason": reason})
}

func (f *Formatter) NotJoined() string {
	return f.text("client.not_joined", "Join a session first.", nil)
}

func (f *Formatter) Reconnecting() string {
	return f.text("client.reconnecting", "Connection lost, reconnecting...", nil)
}

// Lobby lists open sessions with how long they have waited.
func (f *Formatter) Lobby(entries []chessdto.LobbyEntry, now time.Time) string {
	if len(entries) == 0 {
		return f.text("client.lobby_empty", "No open sessions.", nil)
	}
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		wait := now.Sub(e.OpenedAt).Truncate(time.Second)
		if wait < 0 {
			wait = 0
		}
		sb.WriteString(fmt.Sprintf("• %s (waiting %s)", e.SessionID, wait))
	}
	return sb.String()
}

// Summary renders a session summary from the admin API.
func (f *Formatter) Summary(sum *chessdto.SessionSummary) string {
	if sum == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session %s: %s, %s to move, %d plies\n", sum.SessionID, sum.Status, sum.ToMove, sum.Plies))
	sb.WriteString("FEN: " + sum.FEN)
	if len(sum.SAN) > 0 {
		sb.WriteString("\nMoves: ")
		for i, san := range sum.SAN {
			if i%2 == 0 {
				sb.WriteString(fmt.Sprintf("%d. ", i/2+1))
			}
			sb.WriteString(san)
			sb.WriteString(" ")
		}
		if !sum.SANComplete {
			sb.WriteString("...")
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
