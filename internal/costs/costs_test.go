package costs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/costs"
)

func newEstimatingService() *costs.Service {
	log := discardLogger()
	return costs.NewService(
		costs.NewTransportEstimator("", log),
		costs.NewAccommodationEstimator("", "", log),
		log,
	)
}

func TestServiceEstimate_CuritibaBreakdown(t *testing.T) {
	svc := newEstimatingService()
	checkIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	breakdown, hotels, err := svc.Estimate(context.Background(), costs.Request{
		Origin:      "São Paulo",
		Destination: "Curitiba",
		CheckIn:     checkIn,
		CheckOut:    checkIn.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Nil(t, hotels)

	assert.Equal(t, "BRL", breakdown.Currency)
	assert.Equal(t, 3, breakdown.Nights)
	assert.Equal(t, bundle.SourceEstimated, breakdown.Sources.Transport)
	assert.Equal(t, bundle.SourceEstimated, breakdown.Sources.Accommodation)

	// 330 km route: short band.
	assert.Equal(t, bundle.PriceRange{Min: 40, Max: 175}, *breakdown.Transport.Bus)
	assert.Equal(t, bundle.PriceRange{Min: 260, Max: 538}, *breakdown.Transport.Flight)

	// Static Curitiba nightly table: 70-130 / 130-270 / 270-550.
	require.NotNil(t, breakdown.DailyBudget)
	assert.Equal(t, 150.0, breakdown.DailyBudget.Budget, "(70+130)/2 + 50")
	assert.Equal(t, 300.0, breakdown.DailyBudget.MidRange, "(130+270)/2 + 100")
	assert.Equal(t, 610.0, breakdown.DailyBudget.Luxury, "(270+550)/2 + 200")

	require.NotNil(t, breakdown.TotalEstimate)
	assert.Equal(t, 40+3*(70.0+50), breakdown.TotalEstimate.Min)
	assert.Equal(t, 538+3*(550.0+200), breakdown.TotalEstimate.Max)
}

func TestServiceEstimate_NightsRoundUp(t *testing.T) {
	svc := newEstimatingService()
	checkIn := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(36 * time.Hour)

	breakdown, _, err := svc.Estimate(context.Background(), costs.Request{
		Origin:      "São Paulo",
		Destination: "Curitiba",
		CheckIn:     checkIn,
		CheckOut:    checkOut,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, breakdown.Nights, "partial day counts as a night")
}

func TestServiceEstimate_Validation(t *testing.T) {
	svc := newEstimatingService()
	checkIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		req  costs.Request
	}{
		{"missing origin", costs.Request{Destination: "Curitiba", CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 3)}},
		{"missing destination", costs.Request{Origin: "São Paulo", CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 3)}},
		{"checkout before checkin", costs.Request{Origin: "São Paulo", Destination: "Curitiba", CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, -1)}},
		{"checkout equals checkin", costs.Request{Origin: "São Paulo", Destination: "Curitiba", CheckIn: checkIn, CheckOut: checkIn}},
		{"stay too long", costs.Request{Origin: "São Paulo", Destination: "Curitiba", CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 400)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Estimate(context.Background(), tc.req)
			assert.Error(t, err)
		})
	}
}
