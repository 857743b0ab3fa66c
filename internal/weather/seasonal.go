package weather

import (
	"math"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/geo"
)

type climate struct {
	months      []int
	avgTemp     float64
	avgRainfall float64
	description string
}

// Climate normals per season, keyed by southern-hemisphere months.
var seasonalTable = map[bundle.Season]climate{
	bundle.SeasonSummer: {
		months:      []int{12, 1, 2},
		avgTemp:     28,
		avgRainfall: 180,
		description: "Verão quente e úmido com chuvas frequentes",
	},
	bundle.SeasonAutumn: {
		months:      []int{3, 4, 5},
		avgTemp:     23,
		avgRainfall: 100,
		description: "Outono com temperaturas amenas e chuvas moderadas",
	},
	bundle.SeasonWinter: {
		months:      []int{6, 7, 8},
		avgTemp:     18,
		avgRainfall: 50,
		description: "Inverno seco com temperaturas mais baixas",
	},
	bundle.SeasonSpring: {
		months:      []int{9, 10, 11},
		avgTemp:     24,
		avgRainfall: 120,
		description: "Primavera com temperaturas crescentes e chuvas ocasionais",
	},
}

var inverted = map[bundle.Season]bundle.Season{
	bundle.SeasonSummer: bundle.SeasonWinter,
	bundle.SeasonWinter: bundle.SeasonSummer,
	bundle.SeasonAutumn: bundle.SeasonSpring,
	bundle.SeasonSpring: bundle.SeasonAutumn,
}

// SeasonalFor derives the typical climate for a month at the given location.
// The season table is keyed for the southern hemisphere; a non-negative
// latitude inverts the season. Temperature gets a small latitude-proportional
// adjustment.
func SeasonalFor(month int, coords geo.Coordinates) bundle.SeasonalWeather {
	season := seasonForMonth(month)
	if coords.Latitude >= 0 {
		season = inverted[season]
	}

	data := seasonalTable[season]

	latFraction := math.Abs(coords.Latitude) / 90
	adjustment := -3 * latFraction
	if coords.Latitude >= 0 {
		adjustment = 5 * latFraction
	}

	return bundle.SeasonalWeather{
		Season:             season,
		AverageTemperature: data.avgTemp + adjustment,
		AverageRainfall:    data.avgRainfall,
		Description:        data.description,
	}
}

func seasonForMonth(month int) bundle.Season {
	for season, data := range seasonalTable {
		for _, m := range data.months {
			if m == month {
				return season
			}
		}
	}
	return bundle.SeasonSpring
}
