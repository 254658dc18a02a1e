package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore is a Store backed by Redis, for deployments where the bot runs
// more than one process. Keys are stored without expiry: the user-to-session
// mapping is append-only for the life of the conversation history.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	tracer trace.Tracer
}

// NewRedisStore creates a Redis-backed store. All keys are namespaced with
// the given prefix.
func NewRedisStore(client *redis.Client, prefix string, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("chatbot.internal.session")
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		tracer: tracer,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.store_get")
	defer span.End()

	v, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		span.RecordError(err)
		return "", false, fmt.Errorf("session: failed to read key: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "session.store_set")
	defer span.End()

	if err := s.redis.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to write key: %w", err)
	}
	return nil
}

func (s *RedisStore) GetOrSet(ctx context.Context, key, value string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.store_get_or_set")
	defer span.End()

	set, err := s.redis.SetNX(ctx, s.key(key), value, 0).Result()
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("session: failed to claim key: %w", err)
	}
	if set {
		return value, false, nil
	}
	// Keys are never deleted, so a lost SETNX always has a value to read.
	existing, err := s.redis.Get(ctx, s.key(key)).Result()
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("session: failed to read key: %w", err)
	}
	return existing, true, nil
}

func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.store_has")
	defer span.End()

	n, err := s.redis.Exists(ctx, s.key(key)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("session: failed to check key: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ Store = (*RedisStore)(nil)
