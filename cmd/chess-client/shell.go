package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/park285/cheese-duel/internal/adapter/chesspresenter"
	"github.com/park285/cheese-duel/internal/client"
	"github.com/park285/cheese-duel/internal/notation"
	"github.com/park285/cheese-duel/pkg/chessdto"
)

type sender interface {
	Send(ctx context.Context, event string, data any) error
}

type adminAPI interface {
	Lobby(ctx context.Context) ([]chessdto.LobbyEntry, error)
	Session(ctx context.Context, id string) (*chessdto.SessionSummary, error)
}

// shell turns prompt lines into socket events and admin calls.
type shell struct {
	ws      sender
	api     adminAPI
	adapter *chesspresenter.Adapter
	p       *chesspresenter.Presenter
	now     func() time.Time
}

// execute runs one command line and reports whether the client should exit.
func (s *shell) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	f := s.p.Formatter()
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true

	case "help", "?":
		s.p.Print(f.Help())

	case "join", "j":
		id := ""
		if len(args) > 0 {
			id = args[0]
		}
		s.adapter.Joining(id)
		s.send(ctx, chessdto.EventJoinGame, id)

	case "move", "m":
		view := s.adapter.View()
		if !view.Joined() {
			s.p.Print(f.NotJoined())
			return false
		}
		if len(args) != 2 {
			s.p.Print("usage: move <from> <to>")
			return false
		}
		from, err := notation.ParseSquare(args[0])
		if err != nil {
			s.p.Print(err.Error())
			return false
		}
		to, err := notation.ParseSquare(args[1])
		if err != nil {
			s.p.Print(err.Error())
			return false
		}
		s.send(ctx, chessdto.EventMakeMove, chessdto.MakeMove{SessionID: view.SessionID, From: from, To: to})

	case "restart":
		view := s.adapter.View()
		if !view.Joined() {
			s.p.Print(f.NotJoined())
			return false
		}
		s.send(ctx, chessdto.EventRestartGame, view.SessionID)

	case "board", "b":
		view := s.adapter.View()
		if view.State == nil {
			s.p.Print(f.NotJoined())
			return false
		}
		s.p.Board("", view.State)
		if s.api == nil {
			return false
		}
		sum, err := s.api.Session(ctx, view.SessionID)
		switch {
		case errors.Is(err, client.ErrNotFound):
		case err != nil:
			s.p.Print(err.Error())
		default:
			s.p.Print(f.Summary(sum))
		}

	case "lobby", "l":
		if s.api == nil {
			return false
		}
		entries, err := s.api.Lobby(ctx)
		if err != nil {
			s.p.Print(err.Error())
			return false
		}
		s.p.Print(f.Lobby(entries, s.now()))

	default:
		s.p.Print("unknown command '"+cmd+"'", f.Help())
	}
	return false
}

func (s *shell) send(ctx context.Context, event string, data any) {
	if err := s.ws.Send(ctx, event, data); err != nil {
		s.p.Print(err.Error())
	}
}
