package chesspresenter

import (
	"io"
	"strings"
	"sync"

	"github.com/park285/cheese-duel/internal/chess"
)

// Presenter writes formatted blocks to the terminal without coupling to the
// command layer. Safe for concurrent use.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
	f   *Formatter
}

func NewPresenter(out io.Writer, f *Formatter) *Presenter {
	return &Presenter{out: out, f: f}
}

func (p *Presenter) Formatter() *Formatter { return p.f }

// Print writes each non-empty line.
func (p *Presenter) Print(lines ...string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		_, _ = io.WriteString(p.out, l+"\n")
	}
}

// Board prints an optional message, the board and the status line.
func (p *Presenter) Board(message string, st *chess.GameState) {
	if p == nil {
		return
	}
	if st == nil {
		p.Print(message)
		return
	}
	p.Print(message, p.f.Board(*st), p.f.Status(*st))
}
