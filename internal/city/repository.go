package city

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvbarbosa/destino-api/internal/geo"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for city records.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const cityColumns = `id, name, state, country, slug, latitude, longitude, request_count, is_popular, last_updated, created_at`

func scanCity(row pgx.Row) (*City, error) {
	var c City
	var lat, lon *float64

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.State,
		&c.Country,
		&c.Slug,
		&lat,
		&lon,
		&c.RequestCount,
		&c.IsPopular,
		&c.LastUpdated,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lon != nil {
		c.Coordinates = &geo.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	return &c, nil
}

// FindBySlug retrieves a city by its slug. Returns nil, nil when not found.
func (r *Repository) FindBySlug(ctx context.Context, cslug string) (*City, error) {
	q := `SELECT ` + cityColumns + ` FROM cities WHERE slug = $1`

	c, err := scanCity(r.q.QueryRow(ctx, q, cslug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying city by slug %s: %w", cslug, err)
	}
	return c, nil
}

// FindByNameAndState retrieves a city by its (name, state) pair.
// Returns nil, nil when not found.
func (r *Repository) FindByNameAndState(ctx context.Context, name, state string) (*City, error) {
	q := `SELECT ` + cityColumns + ` FROM cities WHERE name = $1 AND state = $2`

	c, err := scanCity(r.q.QueryRow(ctx, q, name, state))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying city %s/%s: %w", name, state, err)
	}
	return c, nil
}

// Create inserts a new city record with a zero request counter. The slug is
// derived from (name, state); a conflicting slug returns the existing record
// instead of a duplicate.
func (r *Repository) Create(ctx context.Context, name, state, country string) (*City, error) {
	q := `
		INSERT INTO cities (id, name, state, country, slug, request_count, is_popular, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, FALSE, NOW(), NOW())
		ON CONFLICT (slug) DO UPDATE SET last_updated = cities.last_updated
		RETURNING ` + cityColumns

	c, err := scanCity(r.q.QueryRow(ctx, q, uuid.NewString(), name, state, country, MakeSlug(name, state)))
	if err != nil {
		return nil, fmt.Errorf("creating city %s/%s: %w", name, state, err)
	}
	return c, nil
}

// IncrementRequestCount bumps the city's request counter and recomputes the
// popular flag against PopularityThreshold. The flag never reverts: once the
// counter has crossed the threshold it can only stay above it.
func (r *Repository) IncrementRequestCount(ctx context.Context, cityID string) (*City, error) {
	q := `
		UPDATE cities
		SET request_count = request_count + 1,
		    is_popular    = request_count + 1 >= $2,
		    last_updated  = NOW()
		WHERE id = $1
		RETURNING ` + cityColumns

	c, err := scanCity(r.q.QueryRow(ctx, q, cityID, PopularityThreshold))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("incrementing request count for city %s: %w", cityID, err)
	}
	return c, nil
}

// SetCoordinates stores learned geocoordinates on the city record.
func (r *Repository) SetCoordinates(ctx context.Context, cityID string, coords geo.Coordinates) error {
	if err := coords.Validate(); err != nil {
		return fmt.Errorf("setting coordinates for city %s: %w", cityID, err)
	}

	const q = `
		UPDATE cities
		SET latitude = $2, longitude = $3, last_updated = NOW()
		WHERE id = $1
	`

	if _, err := r.q.Exec(ctx, q, cityID, coords.Latitude, coords.Longitude); err != nil {
		return fmt.Errorf("setting coordinates for city %s: %w", cityID, err)
	}
	return nil
}

// ListPopular returns cities ordered by request counter, most requested first.
func (r *Repository) ListPopular(ctx context.Context, limit int) ([]*City, error) {
	if limit <= 0 {
		limit = 10
	}

	q := `SELECT ` + cityColumns + ` FROM cities ORDER BY request_count DESC, name ASC LIMIT $1`

	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying popular cities: %w", err)
	}
	defer rows.Close()

	var cities []*City
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating city rows: %w", err)
	}

	return cities, nil
}
