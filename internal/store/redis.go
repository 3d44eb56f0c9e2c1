// Package store keeps live match snapshots in Redis so matches survive a
// process restart.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/game"
	"github.com/park285/cheese-board/internal/obslog"
)

const DefaultTTL = 24 * time.Hour

// Record is one stored match.
type Record struct {
	ID        string        `json:"id"`
	Snapshot  game.Snapshot `json:"snapshot"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Open connects to redisURL and pings it.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

// ParseRedisURL accepts redis:// and rediss:// URLs. rediss enables TLS; user
// info, db path and query options follow go-redis.
func ParseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	return opts, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keyMatch(id string) string { return "cb:match:" + strings.TrimSpace(id) }
func keyIndex() string          { return "cb:matches" }

// Save writes rec and refreshes its TTL.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: record id required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyMatch(rec.ID), raw, s.ttl)
	pipe.SAdd(ctx, keyIndex(), rec.ID)
	pipe.Expire(ctx, keyIndex(), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save match %s: %w", rec.ID, err)
	}
	return nil
}

// Load returns nil, nil when the match is unknown or expired.
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, keyMatch(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, keyMatch(id))
	pipe.SRem(ctx, keyIndex(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// IDs lists stored matches, dropping index entries whose record expired.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, keyIndex()).Result()
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, keyMatch(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			if err := s.rdb.SRem(ctx, keyIndex(), id).Err(); err != nil {
				obslog.L().Warn("store_index_prune_failed", zap.String("id", id), zap.Error(err))
			}
			continue
		}
		out = append(out, id)
	}
	return out, nil
}
