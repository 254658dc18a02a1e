package session

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, "chatbot", nil), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "session:user-1"); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "session:user-1", "sid-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok, err := store.Get(ctx, "session:user-1")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != "sid-123" {
		t.Errorf("expected sid-123, got %q", v)
	}

	has, err := store.Has(ctx, "session:user-1")
	if err != nil || !has {
		t.Fatalf("Has failed: has=%v err=%v", has, err)
	}
}

func TestRedisStore_KeysAreNamespaced(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session:user-1", "sid-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if got, err := mr.Get("chatbot:session:user-1"); err != nil || got != "sid-123" {
		t.Errorf("expected prefixed key in redis, got %q err=%v", got, err)
	}
}

func TestRedisStore_NoExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "session:user-1", "sid-123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if mr.TTL("chatbot:session:user-1") != 0 {
		t.Errorf("session keys must not expire, got TTL %v", mr.TTL("chatbot:session:user-1"))
	}
}

func TestRedisStore_GetOrSet(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	winner, loaded, err := store.GetOrSet(ctx, "session:user-1", "sid-first")
	if err != nil || loaded || winner != "sid-first" {
		t.Fatalf("expected to claim the key, got %q loaded=%v err=%v", winner, loaded, err)
	}
	winner, loaded, err = store.GetOrSet(ctx, "session:user-1", "sid-second")
	if err != nil || !loaded || winner != "sid-first" {
		t.Fatalf("expected the existing value to win, got %q loaded=%v err=%v", winner, loaded, err)
	}
}

func TestRedisStore_WorksAsRegistryBackend(t *testing.T) {
	store, _ := newRedisStore(t)
	registry := NewRegistry(store, nil, nil)
	ctx := context.Background()

	first, err := registry.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	second, err := registry.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if first != second {
		t.Errorf("expected a stable session id, got %q then %q", first, second)
	}
}
