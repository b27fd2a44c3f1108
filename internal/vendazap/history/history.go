// Package history provides the per-conversation message log.
//
// The log is a bounded, optionally expiring, append-only sequence of
// role-tagged turns stored in Redis under hist:<conversationID>. It is an
// accelerator, not a dependency: every failure path degrades to an empty
// history so the bot falls back to stateless single-turn replies instead of
// going down with the store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Turn is one message in a conversation. Turns are immutable once written;
// the store only appends and trims from the front.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles a Turn may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTurns bounds how many trailing turns are kept per conversation
// when no explicit limit is configured.
const DefaultMaxTurns = 24

// keyPrefix namespaces conversation logs inside the shared Redis keyspace.
const keyPrefix = "hist:"

// errNotFound reports an absent key. Internal: callers of Load never see it.
var errNotFound = errors.New("history: key not found")

// kv is the minimal keyed get/set surface the store needs. Production code
// uses the Redis implementation below; tests substitute an in-memory fake.
type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store reads and writes bounded conversation logs.
//
// Store is safe for concurrent use. Reads and writes for different
// conversations are independent keyed operations; two in-flight messages for
// the same conversation may race read-modify-write (last writer wins), which
// is accepted for a best-effort log.
type Store struct {
	kv       kv
	maxTurns int
	ttl      time.Duration
}

// New creates a Store over an arbitrary kv backend. maxTurns ≤ 0 defaults to
// DefaultMaxTurns; ttl ≤ 0 means entries never expire.
func New(backend kv, maxTurns int, ttl time.Duration) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Store{kv: backend, maxTurns: maxTurns, ttl: ttl}
}

// NewRedis creates a Store backed by the Redis instance at url
// (redis://host:port/db or rediss:// for TLS).
//
// Only an unparseable URL is an error. An unreachable server is not: the
// store is constructed anyway and every Load/Save degrades gracefully until
// Redis comes back. Reachability is probed once here purely for the log.
func NewRedis(ctx context.Context, url string, maxTurns int, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("history: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("history: redis not reachable at startup, continuing degraded",
			"addr", opts.Addr, "err", err)
	} else {
		slog.Info("history: connected to redis", "addr", opts.Addr, "max_turns", maxTurns, "ttl", ttl)
	}

	return New(&redisKV{client: client}, maxTurns, ttl), nil
}

// MaxTurns reports the configured per-conversation cap.
func (s *Store) MaxTurns() int { return s.maxTurns }

// Load returns the stored turns for a conversation, oldest first.
//
// Load never fails from the caller's point of view: an unreachable store, an
// absent key, or a corrupt payload all yield an empty slice. Corruption and
// transport errors are logged at Warn.
func (s *Store) Load(ctx context.Context, conversationID string) []Turn {
	raw, err := s.kv.Get(ctx, keyPrefix+conversationID)
	if err != nil {
		if !errors.Is(err, errNotFound) {
			slog.Warn("history: load failed, replying without context",
				"conversation", conversationID, "err", err)
		}
		return nil
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		slog.Warn("history: corrupt payload, discarding",
			"conversation", conversationID, "err", err)
		return nil
	}
	return turns
}

// Save persists the turns for a conversation, trimming to the most recent
// maxTurns first and applying the configured TTL. Best-effort: failures are
// logged, never surfaced.
func (s *Store) Save(ctx context.Context, conversationID string, turns []Turn) {
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}

	payload, err := json.Marshal(turns)
	if err != nil {
		slog.Warn("history: marshal failed", "conversation", conversationID, "err", err)
		return
	}

	if err := s.kv.Set(ctx, keyPrefix+conversationID, string(payload), s.ttl); err != nil {
		slog.Warn("history: save failed, turn not persisted",
			"conversation", conversationID, "err", err)
	}
}

// redisKV adapts *redis.Client to the kv interface.
type redisKV struct {
	client *redis.Client
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errNotFound
	}
	return val, err
}

func (r *redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying Redis connection, when there is one.
func (s *Store) Close() error {
	if r, ok := s.kv.(*redisKV); ok {
		return r.client.Close()
	}
	return nil
}
