// Package costs estimates trip expenses: transport fares by distance band,
// nightly accommodation tiers, and derived daily and total budgets.
package costs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/geo"
)

const maxTripNights = 365

// Daily food allowance per comfort level, in BRL.
const (
	foodBudget   = 50.0
	foodMidRange = 100.0
	foodLuxury   = 200.0
)

// Request describes a trip to price. Coordinates are optional and only
// sharpen the transport distance estimate.
type Request struct {
	Origin       string
	Destination  string
	CheckIn      time.Time
	CheckOut     time.Time
	OriginCoords *geo.Coordinates
	DestCoords   *geo.Coordinates
}

// Validate rejects requests the estimators cannot price.
func (r Request) Validate() error {
	if r.Origin == "" {
		return fmt.Errorf("origin is required")
	}
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	if !r.CheckOut.After(r.CheckIn) {
		return fmt.Errorf("check-out must be after check-in")
	}
	if tripNights(r.CheckIn, r.CheckOut) > maxTripNights {
		return fmt.Errorf("trip length exceeds %d nights", maxTripNights)
	}
	return nil
}

// Service combines the transport and accommodation estimators into a full
// cost breakdown for a trip.
type Service struct {
	transport     *TransportEstimator
	accommodation *AccommodationEstimator
	log           *slog.Logger
}

func NewService(transport *TransportEstimator, accommodation *AccommodationEstimator, log *slog.Logger) *Service {
	return &Service{transport: transport, accommodation: accommodation, log: log}
}

// Estimate prices the trip. Both legs degrade to static estimates rather
// than failing, so the only errors are validation errors.
func (s *Service) Estimate(ctx context.Context, req Request) (*bundle.CostBreakdown, []bundle.Hotel, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	transport, transportSrc := s.transport.Estimate(ctx, req.Origin, req.Destination, req.OriginCoords, req.DestCoords)
	nightly, hotels, accomSrc := s.accommodation.Estimate(ctx, req.Destination, req.CheckIn, req.CheckOut)

	nights := tripNights(req.CheckIn, req.CheckOut)
	breakdown := &bundle.CostBreakdown{
		Transport:     transport,
		Accommodation: nightly,
		DailyBudget:   dailyBudget(nightly),
		TotalEstimate: totalEstimate(transport, nightly, nights),
		Currency:      "BRL",
		Nights:        nights,
		Sources: bundle.CostSources{
			Transport:     transportSrc,
			Accommodation: accomSrc,
		},
	}
	return breakdown, hotels, nil
}

func tripNights(checkIn, checkOut time.Time) int {
	return int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
}

// dailyBudget is the tier's average nightly rate plus that tier's food allowance.
func dailyBudget(nightly *bundle.AccommodationCosts) *bundle.DailyBudget {
	if nightly == nil {
		return nil
	}
	budget := &bundle.DailyBudget{}
	if r := nightly.Budget; r != nil {
		budget.Budget = math.Round((r.Min+r.Max)/2 + foodBudget)
	}
	if r := nightly.MidRange; r != nil {
		budget.MidRange = math.Round((r.Min+r.Max)/2 + foodMidRange)
	}
	if r := nightly.Luxury; r != nil {
		budget.Luxury = math.Round((r.Min+r.Max)/2 + foodLuxury)
	}
	return budget
}

// totalEstimate brackets the whole trip: cheapest bus plus nights of budget
// lodging and food on the low end, priciest flight plus nights of luxury
// lodging and food on the high end.
func totalEstimate(transport *bundle.TransportCosts, nightly *bundle.AccommodationCosts, nights int) *bundle.PriceRange {
	if transport == nil || nightly == nil {
		return nil
	}
	total := &bundle.PriceRange{}
	if transport.Bus != nil && nightly.Budget != nil {
		total.Min = math.Round(transport.Bus.Min + float64(nights)*(nightly.Budget.Min+foodBudget))
	}
	if transport.Flight != nil && nightly.Luxury != nil {
		total.Max = math.Round(transport.Flight.Max + float64(nights)*(nightly.Luxury.Max+foodLuxury))
	}
	return total
}

func validMoney(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
