// Package history records destination searches so users can revisit past
// queries.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one stored search.
type Record struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CityID          string    `json:"city_id"`
	CityName        string    `json:"city_name"`
	State           string    `json:"state"`
	Country         string    `json:"country"`
	TravelStartDate time.Time `json:"travel_start_date"`
	TravelEndDate   time.Time `json:"travel_end_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for search history.
type Repository struct {
	q Querier
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const historyColumns = `id, user_id, city_id, city_name, state, country, travel_start_date, travel_end_date, created_at`

// Create stores a search record.
func (r *Repository) Create(ctx context.Context, rec Record) (*Record, error) {
	q := `
		INSERT INTO search_history (id, user_id, city_id, city_name, state, country, travel_start_date, travel_end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + historyColumns

	out, err := scanRecord(r.q.QueryRow(ctx, q,
		uuid.NewString(), rec.UserID, rec.CityID, rec.CityName, rec.State, rec.Country,
		rec.TravelStartDate, rec.TravelEndDate))
	if err != nil {
		return nil, fmt.Errorf("creating search history record: %w", err)
	}
	return out, nil
}

// ListByUser returns the user's searches, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	q := `
		SELECT ` + historyColumns + `
		FROM search_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying search history for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search history row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search history rows: %w", err)
	}

	return records, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CityID,
		&rec.CityName,
		&rec.State,
		&rec.Country,
		&rec.TravelStartDate,
		&rec.TravelEndDate,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
