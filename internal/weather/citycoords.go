package weather

import "github.com/mvbarbosa/destino-api/internal/geo"

// Static fallback coordinates for the cities most commonly requested, used
// when neither the request nor the city record carries a location.
var cityCoordinates = map[string]geo.Coordinates{
	"São Paulo":      {Latitude: -23.5505, Longitude: -46.6333},
	"Rio de Janeiro": {Latitude: -22.9068, Longitude: -43.1729},
	"Brasília":       {Latitude: -15.7939, Longitude: -47.8828},
	"Salvador":       {Latitude: -12.9714, Longitude: -38.5014},
	"Fortaleza":      {Latitude: -3.7172, Longitude: -38.5433},
	"Belo Horizonte": {Latitude: -19.9167, Longitude: -43.9345},
	"Curitiba":       {Latitude: -25.4284, Longitude: -49.2733},
	"Recife":         {Latitude: -8.0476, Longitude: -34.8770},
	"Porto Alegre":   {Latitude: -30.0346, Longitude: -51.2177},
	"Florianópolis":  {Latitude: -27.5954, Longitude: -48.5480},
	"Manaus":         {Latitude: -3.1190, Longitude: -60.0217},
	"Belém":          {Latitude: -1.4558, Longitude: -48.5039},
}

// CityCoordinates looks a city up in the static coordinates table.
func CityCoordinates(name string) (geo.Coordinates, bool) {
	coords, ok := cityCoordinates[name]
	return coords, ok
}
