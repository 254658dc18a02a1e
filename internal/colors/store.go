// Package colors persists the iPhone color catalog and per-user color
// preferences.
package colors

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/lib/pq"
)

// PostgresStore reads the catalog and user preferences from Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ReadAll returns the full catalog of available colors in catalog order.
func (s *PostgresStore) ReadAll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT color FROM iphone_colors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("colors: read catalog: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var color string
		if err := rows.Scan(&color); err != nil {
			return nil, fmt.Errorf("colors: scan catalog row: %w", err)
		}
		out = append(out, color)
	}
	if out == nil {
		out = []string{}
	}
	return out, rows.Err()
}

// ReadUserColor returns the user's stored preference, or "" when the user has
// not picked one.
func (s *PostgresStore) ReadUserColor(ctx context.Context, userID string) (string, error) {
	var color string
	err := s.db.QueryRowContext(ctx,
		`SELECT color FROM user_colors WHERE user_id = $1`, userID).Scan(&color)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("colors: read user color: %w", err)
	}
	return color, nil
}

// UpdateUserColor stores the user's preference, replacing any previous one.
func (s *PostgresStore) UpdateUserColor(ctx context.Context, color, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_colors (user_id, color) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET color = EXCLUDED.color, updated_at = NOW()`,
		userID, color)
	if err != nil {
		return fmt.Errorf("colors: update user color: %w", err)
	}
	return nil
}

// MemoryStore is an in-process store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog []string
	users   map[string]string
}

// DefaultCatalog is the catalog the memory store starts with.
var DefaultCatalog = []string{"Silver", "Space Gray", "Gold", "Red"}

// NewMemoryStore creates a memory store seeded with the default catalog.
func NewMemoryStore() *MemoryStore {
	catalog := make([]string, len(DefaultCatalog))
	copy(catalog, DefaultCatalog)
	return &MemoryStore{
		catalog: catalog,
		users:   make(map[string]string),
	}
}

func (s *MemoryStore) ReadAll(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.catalog))
	copy(out, s.catalog)
	return out, nil
}

func (s *MemoryStore) ReadUserColor(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID], nil
}

func (s *MemoryStore) UpdateUserColor(_ context.Context, color, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = color
	return nil
}

// Users returns the user ids with a stored preference, sorted. Test helper.
func (s *MemoryStore) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
