package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// UserProfile is the cached platform profile for a chat user. FavoriteColor
// comes from the color preference store, not the platform, and may stay empty.
type UserProfile struct {
	UserID        string `json:"user_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Gender        string `json:"gender"`
	FavoriteColor string `json:"favorite_color,omitempty"`
}

// ProfileSource fetches a user profile from the platform. One HTTP round trip
// of latency; returns nil when the platform has no data for the user.
type ProfileSource interface {
	Fetch(ctx context.Context, userID string) (*UserProfile, error)
}

const (
	sessionKeyPrefix = "session"
	profileKeyPrefix = "profile"

	profilePollInterval = 100 * time.Millisecond
)

// Registry maps chat-user ids to stable conversation-session ids and caches
// user profiles. A session is created lazily on the first inbound event from
// a user and never expires for the life of the store.
type Registry struct {
	store  Store
	source ProfileSource
	logger *logging.Logger
}

// NewRegistry creates a registry over the given store. source may be nil when
// profile lookups are unavailable; greetings then fall back to generic text.
func NewRegistry(store Store, source ProfileSource, logger *logging.Logger) *Registry {
	if store == nil {
		panic("session: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		store:  store,
		source: source,
		logger: logger,
	}
}

// Ensure returns the stable session id for the user, creating one on first
// contact. The miss path claims the key atomically, so racing events from a
// brand-new user all resolve to the same id; the loser's UUID is discarded.
// Creation also kicks off an asynchronous profile fetch. Racing creators may
// each fetch the profile; the fetch is idempotent so the duplicate is
// tolerated rather than deduplicated.
func (r *Registry) Ensure(ctx context.Context, userID string) (string, error) {
	key := fmt.Sprintf("%s:%s", sessionKeyPrefix, userID)

	if id, ok, err := r.store.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return id, nil
	}

	id, loaded, err := r.store.GetOrSet(ctx, key, uuid.NewString())
	if err != nil {
		return "", err
	}
	if loaded {
		return id, nil
	}
	r.logger.Info("session created", "user_id", userID, "session_id", id)

	if r.source != nil {
		go r.fetchProfile(userID)
	}

	return id, nil
}

// Profile returns the cached profile for the user, if the platform lookup has
// resolved.
func (r *Registry) Profile(ctx context.Context, userID string) (*UserProfile, bool) {
	key := fmt.Sprintf("%s:%s", profileKeyPrefix, userID)
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var profile UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		r.logger.Error("cached profile is corrupt", "user_id", userID, "error", err)
		return nil, false
	}
	return &profile, true
}

// WaitProfile polls for the profile up to the given wait. Callers needing a
// profile-dependent reply wait briefly instead of failing when the fetch is
// still in flight.
func (r *Registry) WaitProfile(ctx context.Context, userID string, wait time.Duration) (*UserProfile, bool) {
	deadline := time.Now().Add(wait)
	for {
		if profile, ok := r.Profile(ctx, userID); ok {
			return profile, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(profilePollInterval):
		}
	}
}

func (r *Registry) fetchProfile(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	profile, err := r.source.Fetch(ctx, userID)
	if err != nil {
		r.logger.Error("profile fetch failed", "user_id", userID, "error", err)
		return
	}
	if profile == nil {
		r.logger.Warn("no profile data for user", "user_id", userID)
		return
	}
	profile.UserID = userID

	raw, err := json.Marshal(profile)
	if err != nil {
		r.logger.Error("profile encode failed", "user_id", userID, "error", err)
		return
	}
	key := fmt.Sprintf("%s:%s", profileKeyPrefix, userID)
	if err := r.store.Set(ctx, key, string(raw)); err != nil {
		r.logger.Error("profile cache write failed", "user_id", userID, "error", err)
		return
	}
	r.logger.Info("profile cached", "user_id", userID, "first_name", profile.FirstName)
}
