package city

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvbarbosa/destino-api/internal/geo"
)

// DefaultCountry is assumed when the caller does not supply one.
const DefaultCountry = "Brasil"

// Directory resolves a human-supplied (name, state) pair to a city record,
// creating one on first sight.
type Directory struct {
	repo *Repository
	log  *slog.Logger
}

// NewDirectory constructs a Directory.
func NewDirectory(repo *Repository, log *slog.Logger) *Directory {
	return &Directory{repo: repo, log: log}
}

// Resolve looks the city up by derived slug and falls back to get-or-create by
// (name, state) on any failure, malformed slug included.
func (d *Directory) Resolve(ctx context.Context, name, state, country string) (*City, error) {
	if country == "" {
		country = DefaultCountry
	}

	cslug := MakeSlug(name, state)
	if ValidSlug(cslug) {
		c, err := d.repo.FindBySlug(ctx, cslug)
		if err != nil {
			d.log.Warn("slug lookup failed, falling back to name lookup", "slug", cslug, "err", err)
		}
		if c != nil {
			return c, nil
		}
	}

	return d.GetOrCreate(ctx, name, state, country)
}

// GetOrCreate fetches the city by (name, state) or creates it.
func (d *Directory) GetOrCreate(ctx context.Context, name, state, country string) (*City, error) {
	c, err := d.repo.FindByNameAndState(ctx, name, state)
	if err != nil {
		return nil, fmt.Errorf("resolving city %s/%s: %w", name, state, err)
	}
	if c != nil {
		return c, nil
	}

	d.log.Info("city not found, creating", "name", name, "state", state)

	c, err = d.repo.Create(ctx, name, state, country)
	if err != nil {
		return nil, fmt.Errorf("resolving city %s/%s: %w", name, state, err)
	}
	return c, nil
}

// RecordRequest bumps the request counter and popularity flag. Intended to be
// called from a background goroutine; the error is returned for logging only.
func (d *Directory) RecordRequest(ctx context.Context, cityID string) error {
	if _, err := d.repo.IncrementRequestCount(ctx, cityID); err != nil {
		return fmt.Errorf("recording request for city %s: %w", cityID, err)
	}
	return nil
}

// LearnCoordinates stores coordinates discovered from an external source on
// the city record, for cities that do not have them yet.
func (d *Directory) LearnCoordinates(ctx context.Context, cityID string, coords geo.Coordinates) error {
	return d.repo.SetCoordinates(ctx, cityID, coords)
}

// ListPopular returns the most requested cities, up to limit.
func (d *Directory) ListPopular(ctx context.Context, limit int) ([]*City, error) {
	return d.repo.ListPopular(ctx, limit)
}
