package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/park285/cheese-duel/internal/adapter/chesspresenter"
	"github.com/park285/cheese-duel/internal/client"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/obslog"
	"github.com/park285/cheese-duel/pkg/chessdto"
	"golang.org/x/term"
)

func main() {
	baseURL := strings.TrimRight(getenv("CHESS_SERVER_URL", "http://localhost:8080"), "/")

	// the terminal belongs to the prompt, logs go to a file only
	logOpts := obslog.OptionsFromEnv(filepath.Join("logs", "chess-client.log"))
	logOpts.Console = false
	if err := obslog.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer obslog.Sync()

	catalog, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "messages: %v\n", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chess> ",
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	color := term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	formatter := chesspresenter.NewFormatter(catalog, color)
	presenter := chesspresenter.NewPresenter(rl.Stdout(), formatter)
	adapter := chesspresenter.NewAdapter(presenter)

	ws := client.NewWebSocket(wsURL(baseURL), 5)
	ws.OnEnvelope(adapter.Handle)
	ws.OnStateChange(func(state client.State) {
		switch state {
		case client.StateReconnecting:
			presenter.Print(formatter.Reconnecting())
		case client.StateConnected:
			// a new socket is a new connection id; take the seat again
			if v := adapter.View(); v.Joined() {
				go func() {
					_ = ws.Send(context.Background(), chessdto.EventJoinGame, v.SessionID)
				}()
			}
		case client.StateFailed:
			presenter.Print("connection failed")
		}
	})

	ctx := context.Background()
	if err := ws.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", baseURL, err)
		os.Exit(1)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ws.Close(cctx)
	}()

	sh := &shell{
		ws:      ws,
		api:     client.NewAPI(baseURL),
		adapter: adapter,
		p:       presenter,
		now:     time.Now,
	}
	presenter.Print(formatter.Welcome(baseURL))

	for {
		if v := adapter.View(); v.Joined() {
			rl.SetPrompt(fmt.Sprintf("chess [%s %s]> ", v.SessionID, v.Color))
		}
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			continue
		}
		if sh.execute(ctx, strings.TrimSpace(line)) {
			break
		}
	}
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}
