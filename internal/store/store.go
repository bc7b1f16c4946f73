// Package store persists connector records in PostgreSQL. Config payloads
// are stored in their sensitive encoding (cleartext values with secret
// markers); masking happens at the presentation layer.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tetherhq/tether/internal/connector"
)

// ErrNotFound reports a lookup for a connector name that was never saved.
var ErrNotFound = errors.New("connector not found")

// Store is a PostgreSQL-backed connector record store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool. The pool's lifecycle stays with the caller.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Saved is a Record plus its storage timestamps.
type Saved struct {
	connector.Record
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Save upserts a record under its name.
func (s *Store) Save(ctx context.Context, rec connector.Record) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO connectors (name, type_id, auth_method, resource_type, resource_id, config)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
  type_id = EXCLUDED.type_id,
  auth_method = EXCLUDED.auth_method,
  resource_type = EXCLUDED.resource_type,
  resource_id = EXCLUDED.resource_id,
  config = EXCLUDED.config,
  updated_at = NOW()
`, rec.Name, rec.TypeID, rec.AuthMethod, rec.ResourceType, rec.ResourceID, []byte(rec.Config))
	if err != nil {
		return fmt.Errorf("saving connector %q: %w", rec.Name, err)
	}
	return nil
}

// Get loads one record by name.
func (s *Store) Get(ctx context.Context, name string) (Saved, error) {
	row := s.pool.QueryRow(ctx, `
SELECT name, type_id, auth_method, resource_type, resource_id, config, created_at, updated_at
FROM connectors
WHERE name = $1
`, name)
	saved, err := scanSaved(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Saved{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Saved{}, fmt.Errorf("loading connector %q: %w", name, err)
	}
	return saved, nil
}

// List returns all records ordered by name.
func (s *Store) List(ctx context.Context) ([]Saved, error) {
	rows, err := s.pool.Query(ctx, `
SELECT name, type_id, auth_method, resource_type, resource_id, config, created_at, updated_at
FROM connectors
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	defer rows.Close()

	var out []Saved
	for rows.Next() {
		saved, err := scanSaved(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connector row: %w", err)
		}
		out = append(out, saved)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing connectors: %w", err)
	}
	return out, nil
}

// Delete removes a record by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM connectors WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting connector %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func scanSaved(row pgx.Row) (Saved, error) {
	var saved Saved
	var config []byte
	if err := row.Scan(&saved.Name, &saved.TypeID, &saved.AuthMethod, &saved.ResourceType,
		&saved.ResourceID, &config, &saved.CreatedAt, &saved.UpdatedAt); err != nil {
		return Saved{}, err
	}
	saved.Config = config
	return saved, nil
}
