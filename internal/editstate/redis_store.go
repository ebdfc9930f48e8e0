package editstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps Edit states in redis with a TTL so abandoned edit sessions
// expire. Show is the absence of a key.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, prefix: "editstate:", ttl: ttl}
}

func (s *RedisStore) key(actorID, entryID string) string {
	return s.prefix + actorID + ":" + entryID
}

func (s *RedisStore) Get(ctx context.Context, actorID, entryID string) (State, error) {
	raw, err := s.client.Get(ctx, s.key(actorID, entryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Initial(actorID, entryID), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get edit state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("unmarshal edit state: %w", err)
	}
	return st, nil
}

func (s *RedisStore) Put(ctx context.Context, st State) error {
	if st.Mode == Show {
		return s.Delete(ctx, st.ActorID, st.EntryID)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal edit state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(st.ActorID, st.EntryID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save edit state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, actorID, entryID string) error {
	if err := s.client.Del(ctx, s.key(actorID, entryID)).Err(); err != nil {
		return fmt.Errorf("delete edit state: %w", err)
	}
	return nil
}

// HealthPing reports whether redis answers.
func (s *RedisStore) HealthPing(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
