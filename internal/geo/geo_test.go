package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mvbarbosa/destino-api/internal/geo"
)

func TestDistanceTo_SaoPauloCuritiba(t *testing.T) {
	saoPaulo := geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}
	curitiba := geo.Coordinates{Latitude: -25.4284, Longitude: -49.2733}

	km := saoPaulo.DistanceTo(curitiba)
	assert.InDelta(t, 338, km, 15, "great-circle SP-Curitiba is roughly 340 km")
}

func TestDistanceTo_ZeroForSamePoint(t *testing.T) {
	p := geo.Coordinates{Latitude: -15.7939, Longitude: -47.8828}
	assert.InDelta(t, 0, p.DistanceTo(p), 0.001)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, geo.Coordinates{Latitude: -90, Longitude: 180}.Validate())
	assert.NoError(t, geo.Coordinates{Latitude: 0, Longitude: 0}.Validate())

	assert.Error(t, geo.Coordinates{Latitude: 91, Longitude: 0}.Validate())
	assert.Error(t, geo.Coordinates{Latitude: 0, Longitude: -181}.Validate())
}
