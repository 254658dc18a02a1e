package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

type countingSource struct {
	mu      sync.Mutex
	fetches int32
	profile *UserProfile
	err     error
}

func (s *countingSource) Fetch(context.Context, string) (*UserProfile, error) {
	atomic.AddInt32(&s.fetches, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.err
}

func TestEnsure_CreatesAndReusesSession(t *testing.T) {
	store := NewMemoryStore()
	registry := NewRegistry(store, nil, logging.New("error"))
	ctx := context.Background()

	first, err := registry.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" {
		t.Fatal("expected a session id")
	}

	second, err := registry.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != first {
		t.Errorf("expected the same session id, got %q then %q", first, second)
	}

	other, err := registry.Ensure(ctx, "user-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other == first {
		t.Error("expected a different session id for a different user")
	}
}

func TestEnsure_TriggersProfileFetch(t *testing.T) {
	store := NewMemoryStore()
	source := &countingSource{profile: &UserProfile{FirstName: "Ada"}}
	registry := NewRegistry(store, source, logging.New("error"))
	ctx := context.Background()

	if _, err := registry.Ensure(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile, ok := registry.WaitProfile(ctx, "user-1", time.Second)
	if !ok {
		t.Fatal("expected the profile to resolve")
	}
	if profile.FirstName != "Ada" || profile.UserID != "user-1" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestEnsure_RacingFirstContactSharesOneSession(t *testing.T) {
	store := NewMemoryStore()
	source := &countingSource{profile: &UserProfile{FirstName: "Ada"}}
	registry := NewRegistry(store, source, logging.New("error"))
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := registry.Ensure(ctx, "user-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	// Every racing creator must resolve to the one claimed id. The profile
	// fetch may still fire more than once; that duplicate is accepted because
	// the fetch is idempotent.
	for i, id := range ids {
		if id == "" {
			t.Fatalf("goroutine %d got no session id", i)
		}
		if id != ids[0] {
			t.Fatalf("racing creators got different session ids: %q vs %q", ids[0], id)
		}
	}

	stable, err := registry.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stable != ids[0] {
		t.Errorf("session id not stable after the race: %q vs %q", ids[0], stable)
	}

	if _, ok := registry.WaitProfile(ctx, "user-1", time.Second); !ok {
		t.Error("expected the profile to resolve after racing creation")
	}
	if n := atomic.LoadInt32(&source.fetches); n < 1 {
		t.Errorf("expected at least one profile fetch, got %d", n)
	}
}

func TestProfile_MissingAndFetchFailure(t *testing.T) {
	store := NewMemoryStore()
	source := &countingSource{err: errors.New("graph api down")}
	registry := NewRegistry(store, source, logging.New("error"))
	ctx := context.Background()

	if _, ok := registry.Profile(ctx, "stranger"); ok {
		t.Error("expected no profile for an unknown user")
	}

	if _, err := registry.Ensure(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := registry.WaitProfile(ctx, "user-1", 300*time.Millisecond); ok {
		t.Error("expected no profile when the fetch fails")
	}
}

func TestWaitProfile_CancelledContext(t *testing.T) {
	store := NewMemoryStore()
	registry := NewRegistry(store, nil, logging.New("error"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, ok := registry.WaitProfile(ctx, "user-1", 5*time.Second); ok {
		t.Error("expected no profile")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected an early return on cancellation, took %v", elapsed)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok, err := store.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("expected v, got %q ok=%v err=%v", v, ok, err)
	}
	if has, err := store.Has(ctx, "k"); err != nil || !has {
		t.Fatalf("expected key to exist, got has=%v err=%v", has, err)
	}
	if has, err := store.Has(ctx, "other"); err != nil || has {
		t.Fatalf("expected key to be absent, got has=%v err=%v", has, err)
	}
}

func TestMemoryStore_GetOrSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	winner, loaded, err := store.GetOrSet(ctx, "k", "first")
	if err != nil || loaded || winner != "first" {
		t.Fatalf("expected to claim the key, got %q loaded=%v err=%v", winner, loaded, err)
	}
	winner, loaded, err = store.GetOrSet(ctx, "k", "second")
	if err != nil || !loaded || winner != "first" {
		t.Fatalf("expected the existing value to win, got %q loaded=%v err=%v", winner, loaded, err)
	}
}
