package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisIndex publishes open sessions to Redis so other processes (and the
// admin API of any replica) can list them. Each entry is a JSON value at
// lobby:session:<id> with a TTL; the set lobby:open indexes the ids.
type RedisIndex struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIndex(rdb *redis.Client, ttl time.Duration) *RedisIndex {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisIndex{rdb: rdb, ttl: ttl}
}

// NewRedisIndexFromURL parses a redis:// URL and pings the server.
func NewRedisIndexFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisIndex, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisIndex(rdb, ttl), nil
}

func (s *RedisIndex) keyEntry(id string) string { return "lobby:session:" + strings.TrimSpace(id) }
func (s *RedisIndex) keyOpen() string           { return "lobby:open" }

func (s *RedisIndex) Open(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.SessionID) == "" {
		return ErrInvalidArgs
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyEntry(e.SessionID), raw, s.ttl)
	pipe.SAdd(ctx, s.keyOpen(), e.SessionID)
	// refresh TTL of the index set
	pipe.Expire(ctx, s.keyOpen(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lobby open %s: %w", e.SessionID, err)
	}
	return nil
}

func (s *RedisIndex) Close(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.keyEntry(sessionID))
	pipe.SRem(ctx, s.keyOpen(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lobby close %s: %w", sessionID, err)
	}
	return nil
}

// List returns live entries. Members whose entry key has expired are
// pruned from the index set.
func (s *RedisIndex) List(ctx context.Context) ([]Entry, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyOpen()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		raw, err := s.rdb.Get(ctx, s.keyEntry(id)).Bytes()
		if err == redis.Nil {
			_ = s.rdb.SRem(ctx, s.keyOpen(), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}
