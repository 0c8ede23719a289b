package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arbwatch/internal/domain"
)

// VenueStore implements domain.VenueStore using PostgreSQL.
type VenueStore struct {
	pool *pgxpool.Pool
}

// NewVenueStore creates a VenueStore backed by the given connection pool.
func NewVenueStore(pool *pgxpool.Pool) *VenueStore {
	return &VenueStore{pool: pool}
}

// Upsert inserts or updates a venue by ID.
func (s *VenueStore) Upsert(ctx context.Context, v domain.Venue) error {
	const query = `
		INSERT INTO venues (id, name, active, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active`
	if _, err := s.pool.Exec(ctx, query, v.ID, v.Name, v.Active, v.CreatedAt); err != nil {
		return fmt.Errorf("postgres: upsert venue %s: %w", v.ID, err)
	}
	return nil
}

// GetByID returns one venue, or ErrNotFound.
func (s *VenueStore) GetByID(ctx context.Context, id string) (domain.Venue, error) {
	const query = `SELECT id, name, active, created_at FROM venues WHERE id = $1`
	var v domain.Venue
	err := s.pool.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Venue{}, fmt.Errorf("postgres: venue %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Venue{}, fmt.Errorf("postgres: get venue %s: %w", id, err)
	}
	return v, nil
}

// ListActive returns active venues ordered by name.
func (s *VenueStore) ListActive(ctx context.Context) ([]domain.Venue, error) {
	return s.list(ctx, `SELECT id, name, active, created_at FROM venues WHERE active ORDER BY name`)
}

// List returns all venues ordered by name.
func (s *VenueStore) List(ctx context.Context) ([]domain.Venue, error) {
	return s.list(ctx, `SELECT id, name, active, created_at FROM venues ORDER BY name`)
}

func (s *VenueStore) list(ctx context.Context, query string) ([]domain.Venue, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list venues: %w", err)
	}
	defer rows.Close()

	var venues []domain.Venue
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}
