package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mvbarbosa/destino-api/internal/geo"
	"github.com/mvbarbosa/destino-api/internal/httpx"
)

const defaultBaseURL = "https://pt.wikipedia.org/api/rest_v1"

// Summary is the encyclopedic payload for a city page.
type Summary struct {
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	Extract      string           `json:"extract"`
	CanonicalURL string           `json:"canonical_url,omitempty"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	Coordinates  *geo.Coordinates `json:"coordinates,omitempty"`
	Categories   []string         `json:"categories,omitempty"`
}

// Client fetches structured page summaries from a Wikipedia-style REST API.
type Client struct {
	baseURL   string
	actionURL string
	client    *httpx.Client
	log       *slog.Logger
}

// NewClient constructs a Client against the production endpoints.
func NewClient(log *slog.Logger) *Client {
	return NewClientWithURLs(defaultBaseURL, "https://pt.wikipedia.org/w/api.php", log)
}

// NewClientWithURLs constructs a Client pointing at custom endpoints (for tests).
func NewClientWithURLs(baseURL, actionURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		actionURL: actionURL,
		client:    httpx.New(),
		log:       log,
	}
}

type summaryResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
	Coordinates *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coordinates"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

type categoriesResponse struct {
	Query struct {
		Pages map[string]struct {
			Categories []struct {
				Title string `json:"title"`
			} `json:"categories"`
		} `json:"pages"`
	} `json:"query"`
}

// Fetch retrieves the page summary for a city. The canonical title
// "Name, State, Country" is tried first, then the bare city name. A page that
// does not exist is a normal absence (nil, nil), not a failure.
func (c *Client) Fetch(ctx context.Context, name, state, country string) (*Summary, error) {
	titles := candidateTitles(name, state, country)

	for _, title := range titles {
		sum, err := c.fetchSummary(ctx, title)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			continue
		}

		if cats, err := c.fetchCategories(ctx, sum.Title); err != nil {
			c.log.Warn("category fetch failed", "title", sum.Title, "err", err)
		} else {
			sum.Categories = cats
		}
		return sum, nil
	}

	return nil, nil
}

func candidateTitles(name, state, country string) []string {
	titles := make([]string, 0, 2)
	if state != "" && country != "" {
		titles = append(titles, fmt.Sprintf("%s, %s, %s", name, state, country))
	}
	return append(titles, name)
}

func (c *Client) fetchSummary(ctx context.Context, title string) (*Summary, error) {
	endpoint := c.baseURL + "/page/summary/" + url.PathEscape(title)

	var raw summaryResponse
	if err := c.client.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		if httpx.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wikipedia summary for %q: %w", title, err)
	}

	if strings.TrimSpace(raw.Extract) == "" {
		return nil, nil
	}

	sum := &Summary{
		Title:        raw.Title,
		Description:  raw.Description,
		Extract:      raw.Extract,
		CanonicalURL: raw.ContentURLs.Desktop.Page,
	}
	if raw.Thumbnail != nil {
		sum.ThumbnailURL = raw.Thumbnail.Source
	}
	if raw.Coordinates != nil {
		coords := geo.Coordinates{Latitude: raw.Coordinates.Lat, Longitude: raw.Coordinates.Lon}
		if coords.Validate() == nil {
			sum.Coordinates = &coords
		}
	}
	return sum, nil
}

func (c *Client) fetchCategories(ctx context.Context, title string) ([]string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("prop", "categories")
	q.Set("titles", title)
	q.Set("format", "json")
	q.Set("cllimit", "10")

	var raw categoriesResponse
	if err := c.client.GetJSON(ctx, c.actionURL+"?"+q.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("wikipedia categories for %q: %w", title, err)
	}

	var cats []string
	for _, page := range raw.Query.Pages {
		for _, cat := range page.Categories {
			cats = append(cats, strings.TrimPrefix(cat.Title, "Categoria:"))
		}
	}
	return cats, nil
}
