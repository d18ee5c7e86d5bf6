package chessbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-duel/internal/config"
	"github.com/park285/cheese-duel/internal/lobby"
	"github.com/park285/cheese-duel/internal/msgcat"
	"github.com/park285/cheese-duel/internal/session"
	"github.com/park285/cheese-duel/internal/wsserver"
	"go.uber.org/zap"
)

type Deps struct {
	Coordinator *session.Coordinator
	Hub         *wsserver.Hub
	Server      *wsserver.Server
	Lobby       lobby.Index
	Publisher   *lobby.Publisher
	Catalog     *msgcat.Catalog
}

// New wires the server from configuration. The Redis lobby index is used
// when REDIS_URL is set; otherwise the lobby lives in memory.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	var idx lobby.Index
	if strings.TrimSpace(cfg.RedisURL) != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		ridx, err := lobby.NewRedisIndexFromURL(pctx, cfg.RedisURL, cfg.LobbyTTL())
		if err != nil {
			return nil, fmt.Errorf("init redis lobby: %w", err)
		}
		idx = ridx
		logger.Info("lobby_backend", zap.String("backend", "redis"), zap.Duration("ttl", cfg.LobbyTTL()))
	} else {
		idx = lobby.NewMemoryIndex()
		logger.Info("lobby_backend", zap.String("backend", "memory"))
	}

	pub := lobby.NewPublisher(idx, cfg.EventQueueSize)
	hub := wsserver.NewHub(cfg.SendQueueSize)
	coord := session.New(session.Options{
		Outbox:           hub,
		Notifier:         pub,
		Texts:            catalog,
		DefaultSessionID: cfg.DefaultSessionID,
		QueueSize:        cfg.EventQueueSize,
	})
	srv := wsserver.New(hub, coord, idx, wsserver.Options{
		Origins:      cfg.OriginAllowlist,
		PingInterval: cfg.PingInterval(),
	})

	return &Deps{
		Coordinator: coord,
		Hub:         hub,
		Server:      srv,
		Lobby:       idx,
		Publisher:   pub,
		Catalog:     catalog,
	}, nil
}
