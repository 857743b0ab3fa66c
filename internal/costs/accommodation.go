package costs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mvbarbosa/destino-api/internal/bundle"
	"github.com/mvbarbosa/destino-api/internal/httpx"
)

const (
	defaultOffersBaseURL = "https://test.api.amadeus.com"
	defaultTokenPath     = "/v1/security/oauth2/token"

	maxHotelCandidates = 10
)

var cityHotelCodes = map[string]string{
	"São Paulo":      "SAO",
	"Rio de Janeiro": "RIO",
	"Brasília":       "BSB",
	"Salvador":       "SSA",
	"Fortaleza":      "FOR",
	"Recife":         "REC",
	"Curitiba":       "CWB",
	"Porto Alegre":   "POA",
	"Florianópolis":  "FLN",
	"Manaus":         "MAO",
	"Belém":          "BEL",
	"Belo Horizonte": "BHZ",
}

// Static nightly price tables used when the live offer search is unavailable.
var estimatedNightly = map[string]bundle.AccommodationCosts{
	"São Paulo": {
		Budget:   &bundle.PriceRange{Min: 80, Max: 150},
		MidRange: &bundle.PriceRange{Min: 150, Max: 350},
		Luxury:   &bundle.PriceRange{Min: 350, Max: 800},
	},
	"Rio de Janeiro": {
		Budget:   &bundle.PriceRange{Min: 100, Max: 180},
		MidRange: &bundle.PriceRange{Min: 180, Max: 400},
		Luxury:   &bundle.PriceRange{Min: 400, Max: 1000},
	},
	"Brasília": {
		Budget:   &bundle.PriceRange{Min: 80, Max: 150},
		MidRange: &bundle.PriceRange{Min: 150, Max: 300},
		Luxury:   &bundle.PriceRange{Min: 300, Max: 600},
	},
	"Salvador": {
		Budget:   &bundle.PriceRange{Min: 70, Max: 130},
		MidRange: &bundle.PriceRange{Min: 130, Max: 280},
		Luxury:   &bundle.PriceRange{Min: 280, Max: 600},
	},
	"Fortaleza": {
		Budget:   &bundle.PriceRange{Min: 60, Max: 120},
		MidRange: &bundle.PriceRange{Min: 120, Max: 250},
		Luxury:   &bundle.PriceRange{Min: 250, Max: 500},
	},
	"Belo Horizonte": {
		Budget:   &bundle.PriceRange{Min: 70, Max: 130},
		MidRange: &bundle.PriceRange{Min: 130, Max: 270},
		Luxury:   &bundle.PriceRange{Min: 270, Max: 550},
	},
	"Curitiba": {
		Budget:   &bundle.PriceRange{Min: 70, Max: 130},
		MidRange: &bundle.PriceRange{Min: 130, Max: 270},
		Luxury:   &bundle.PriceRange{Min: 270, Max: 550},
	},
	"Recife": {
		Budget:   &bundle.PriceRange{Min: 60, Max: 120},
		MidRange: &bundle.PriceRange{Min: 120, Max: 250},
		Luxury:   &bundle.PriceRange{Min: 250, Max: 500},
	},
	"Porto Alegre": {
		Budget:   &bundle.PriceRange{Min: 70, Max: 130},
		MidRange: &bundle.PriceRange{Min: 130, Max: 270},
		Luxury:   &bundle.PriceRange{Min: 270, Max: 550},
	},
	"Florianópolis": {
		Budget:   &bundle.PriceRange{Min: 80, Max: 150},
		MidRange: &bundle.PriceRange{Min: 150, Max: 320},
		Luxury:   &bundle.PriceRange{Min: 320, Max: 700},
	},
}

var estimatedNightlyDefault = bundle.AccommodationCosts{
	Budget:   &bundle.PriceRange{Min: 60, Max: 120},
	MidRange: &bundle.PriceRange{Min: 120, Max: 250},
	Luxury:   &bundle.PriceRange{Min: 250, Max: 500},
}

// AccommodationEstimator prices the lodging leg: a live hotel-offer search
// tiered by price percentiles, falling back to the static nightly table.
type AccommodationEstimator struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *httpx.Client
	log          *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAccommodationEstimator constructs an estimator against the production offers API.
func NewAccommodationEstimator(clientID, clientSecret string, log *slog.Logger) *AccommodationEstimator {
	return NewAccommodationEstimatorWithURL(defaultOffersBaseURL, clientID, clientSecret, log)
}

// NewAccommodationEstimatorWithURL constructs an estimator with a custom base URL (for tests).
func NewAccommodationEstimatorWithURL(baseURL, clientID, clientSecret string, log *slog.Logger) *AccommodationEstimator {
	return &AccommodationEstimator{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       httpx.New(),
		log:          log,
	}
}

// Estimate returns nightly price tiers, lodging candidates, and provenance.
// Any failure along the live path (missing city code, auth, empty offers,
// invalid prices) degrades to the static table, never to an error.
func (a *AccommodationEstimator) Estimate(ctx context.Context, city string, checkIn, checkOut time.Time) (*bundle.AccommodationCosts, []bundle.Hotel, bundle.Source) {
	if a.clientID != "" && a.clientSecret != "" {
		tiers, hotels, err := a.fetchOffers(ctx, city, checkIn, checkOut)
		if err != nil {
			a.log.Warn("hotel offer search failed, using estimate", "city", city, "err", err)
		} else if tiers != nil {
			return tiers, hotels, bundle.SourceAPI
		}
	}

	nightly, ok := estimatedNightly[city]
	if !ok {
		nightly = estimatedNightlyDefault
	}
	return &nightly, nil, bundle.SourceEstimated
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (a *AccommodationEstimator) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		tok := a.accessToken
		a.mu.Unlock()
		return tok, nil
	}
	a.mu.Unlock()

	// The round-trip runs outside the lock; concurrent estimates may each
	// fetch a token, the last write wins.
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	var raw tokenResponse
	if err := a.client.PostFormJSON(ctx, a.baseURL+defaultTokenPath, form, &raw); err != nil {
		return "", fmt.Errorf("fetching offers token: %w", err)
	}
	if raw.AccessToken == "" {
		return "", fmt.Errorf("offers token response missing access_token")
	}

	// Tokens are refreshed 60s before upstream expiry; one too short-lived
	// to outlast that margin is used once and never cached.
	if margin := time.Duration(raw.ExpiresIn-60) * time.Second; margin > 0 {
		a.mu.Lock()
		a.accessToken = raw.AccessToken
		a.tokenExpiry = time.Now().Add(margin)
		a.mu.Unlock()
	}
	return raw.AccessToken, nil
}

type hotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
		Name    string `json:"name"`
	} `json:"data"`
}

type hotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID string `json:"hotelId"`
			Name    string `json:"name"`
		} `json:"hotel"`
		Offers []struct {
			Price struct {
				Total string `json:"total"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

func (a *AccommodationEstimator) fetchOffers(ctx context.Context, city string, checkIn, checkOut time.Time) (*bundle.AccommodationCosts, []bundle.Hotel, error) {
	cityCode, ok := cityHotelCodes[city]
	if !ok {
		return nil, nil, nil
	}

	token, err := a.token(ctx)
	if err != nil {
		return nil, nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	q := url.Values{}
	q.Set("cityCode", cityCode)

	var list hotelListResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/v1/reference-data/locations/hotels/by-city?"+q.Encode(), header, &list); err != nil {
		return nil, nil, fmt.Errorf("listing hotels for %s: %w", city, err)
	}

	var ids []string
	for _, h := range list.Data {
		if h.HotelID == "" {
			continue
		}
		ids = append(ids, h.HotelID)
		if len(ids) == maxHotelCandidates {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	oq := url.Values{}
	oq.Set("hotelIds", strings.Join(ids, ","))
	oq.Set("checkInDate", checkIn.Format("2006-01-02"))
	oq.Set("checkOutDate", checkOut.Format("2006-01-02"))
	oq.Set("adults", "1")
	oq.Set("currency", "BRL")

	var offers hotelOffersResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/v3/shopping/hotel-offers?"+oq.Encode(), header, &offers); err != nil {
		return nil, nil, fmt.Errorf("fetching hotel offers for %s: %w", city, err)
	}

	var prices []float64
	var hotels []bundle.Hotel
	for _, entry := range offers.Data {
		var cheapest *float64
		for _, offer := range entry.Offers {
			p, err := strconv.ParseFloat(offer.Price.Total, 64)
			if err != nil || !validMoney(p) || p == 0 {
				continue
			}
			prices = append(prices, p)
			if cheapest == nil || p < *cheapest {
				v := p
				cheapest = &v
			}
		}
		if entry.Hotel.Name != "" {
			hotels = append(hotels, bundle.Hotel{
				HotelID:       entry.Hotel.HotelID,
				Name:          entry.Hotel.Name,
				PricePerNight: cheapest,
			})
		}
	}
	if len(prices) == 0 {
		return nil, nil, nil
	}

	sort.Float64s(prices)
	tiers := tierize(prices)
	if err := validateTiers(tiers); err != nil {
		return nil, nil, fmt.Errorf("offer prices for %s: %w", city, err)
	}
	return tiers, hotels, nil
}

// tierize splits ascending nightly prices into three tiers at the 33rd and
// 66th percentile indices, clamped to array bounds.
func tierize(prices []float64) *bundle.AccommodationCosts {
	n := len(prices)
	p33 := clampIndex(int(math.Floor(float64(n)*0.33)), n)
	p66 := clampIndex(int(math.Floor(float64(n)*0.66)), n)

	return &bundle.AccommodationCosts{
		Budget:   &bundle.PriceRange{Min: math.Round(prices[0]), Max: math.Round(prices[p33])},
		MidRange: &bundle.PriceRange{Min: math.Round(prices[p33]), Max: math.Round(prices[p66])},
		Luxury:   &bundle.PriceRange{Min: math.Round(prices[p66]), Max: math.Round(prices[n-1])},
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func validateTiers(tiers *bundle.AccommodationCosts) error {
	for _, r := range []*bundle.PriceRange{tiers.Budget, tiers.MidRange, tiers.Luxury} {
		if r == nil {
			continue
		}
		if !validMoney(r.Min) || !validMoney(r.Max) {
			return fmt.Errorf("invalid price range %v", r)
		}
		if r.Max < r.Min {
			return fmt.Errorf("price range max %f below min %f", r.Max, r.Min)
		}
	}
	return nil
}
