package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr      string
	OriginAllowlist []string

	RedisURL    string
	LobbyTTLSec int

	MessagesDir string

	DefaultSessionID string
	EventQueueSize   int
	SendQueueSize    int
	PingIntervalSec  int
}

// LobbyTTL is LobbyTTLSec as a duration.
func (c *AppConfig) LobbyTTL() time.Duration {
	return time.Duration(c.LobbyTTLSec) * time.Second
}

// PingInterval is PingIntervalSec as a duration.
func (c *AppConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":8080",
		LobbyTTLSec:      86400,
		DefaultSessionID: "default",
		EventQueueSize:   256,
		SendQueueSize:    64,
		PingIntervalSec:  15,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.OriginAllowlist = splitList(os.Getenv("ORIGIN_ALLOWLIST"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("DEFAULT_SESSION_ID")); v != "" {
		cfg.DefaultSessionID = v
	}

	positiveInt("LOBBY_TTL_SEC", &cfg.LobbyTTLSec)
	positiveInt("EVENT_QUEUE_SIZE", &cfg.EventQueueSize)
	positiveInt("SEND_QUEUE_SIZE", &cfg.SendQueueSize)
	positiveInt("PING_INTERVAL_SEC", &cfg.PingIntervalSec)

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	return cfg, nil
}

// positiveInt overwrites dst when the variable holds a positive integer.
func positiveInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
