package city

import (
	"regexp"
	"time"

	"github.com/gosimple/slug"

	"github.com/mvbarbosa/destino-api/internal/geo"
)

// PopularityThreshold is the request count at which a city becomes eligible
// for cache write-through.
const PopularityThreshold = 10

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// City is a persisted destination record. The request counter only increases
// and the popular flag is derived from it crossing PopularityThreshold.
type City struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	State        string           `json:"state"`
	Country      string           `json:"country"`
	Slug         string           `json:"slug"`
	Coordinates  *geo.Coordinates `json:"coordinates,omitempty"`
	RequestCount int              `json:"request_count"`
	IsPopular    bool             `json:"is_popular"`
	LastUpdated  time.Time        `json:"last_updated"`
	CreatedAt    time.Time        `json:"created_at"`
}

// MakeSlug derives the unique slug for a (name, state) pair: each part is
// diacritic-stripped, lowercased and hyphenated, then joined with a hyphen.
func MakeSlug(name, state string) string {
	return slug.Make(name) + "-" + slug.Make(state)
}

// ValidSlug reports whether s is a well-formed slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
