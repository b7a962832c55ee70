package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/koztkozt/bottlecangowhere/internal/geo"
	"github.com/koztkozt/bottlecangowhere/internal/metrics"
)

const searchURL = "https://www.onemap.gov.sg/api/common/elastic/search"

var (
	// ErrBadQuery means the query had no usable characters left after
	// stripping everything except letters, digits and spaces.
	ErrBadQuery = errors.New("geocode: empty search term")
	// ErrNoResult means OneMap found nothing for the query.
	ErrNoResult = errors.New("geocode: no matching location")
)

// Client resolves free-text Singapore locations (postal codes, street names,
// building names) to coordinates via the OneMap search API.
type Client struct {
	httpc *http.Client
	base  string
	log   *zap.Logger
	cache *cache.Cache
}

// New creates a OneMap client. Successful lookups are cached for a day;
// OneMap data changes rarely and the API is rate limited.
func New(log *zap.Logger) *Client {
	return &Client{
		httpc: &http.Client{Timeout: 5 * time.Second},
		base:  searchURL,
		log:   log,
		cache: cache.New(24*time.Hour, time.Hour),
	}
}

// searchResponse is the slice of the OneMap payload we care about.
// Coordinates come back as decimal strings.
type searchResponse struct {
	Found   int `json:"found"`
	Results []struct {
		Latitude  string `json:"LATITUDE"`
		Longitude string `json:"LONGITUDE"`
	} `json:"results"`
}

// Geocode returns the coordinate of the best match for query.
// The query is sanitized the way OneMap expects: everything except
// letters, digits and spaces is dropped before the call.
func (c *Client) Geocode(ctx context.Context, query string) (geo.Coordinate, error) {
	term := sanitize(query)
	if term == "" {
		return geo.Coordinate{}, ErrBadQuery
	}

	key := strings.ToLower(term)
	if v, found := c.cache.Get(key); found {
		metrics.GeocodeCacheHitsTotal.Inc()
		return v.(geo.Coordinate), nil
	}

	q := url.Values{}
	q.Set("searchVal", term)
	q.Set("returnGeom", "Y")
	q.Set("getAddrDetails", "Y")
	q.Set("pageNum", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Coordinate{}, err
	}

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.GeocodeFailuresTotal.Inc()
		c.log.Error("onemap request failed", zap.Error(err))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", term, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeFailuresTotal.Inc()
		c.log.Error("onemap unexpected status", zap.Int("status", resp.StatusCode))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: onemap status %d", term, resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		metrics.GeocodeFailuresTotal.Inc()
		c.log.Error("onemap decode failed", zap.Error(err))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", term, err)
	}
	metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))

	if sr.Found == 0 || len(sr.Results) == 0 {
		metrics.GeocodeFailuresTotal.Inc()
		return geo.Coordinate{}, fmt.Errorf("%w: %s", ErrNoResult, term)
	}

	coord, err := parseResult(sr.Results[0].Latitude, sr.Results[0].Longitude)
	if err != nil {
		metrics.GeocodeFailuresTotal.Inc()
		c.log.Error("onemap bad coordinate", zap.Error(err))
		return geo.Coordinate{}, fmt.Errorf("geocode %q: %w", term, err)
	}

	c.cache.Set(key, coord, cache.DefaultExpiration)
	c.log.Debug("geocoded",
		zap.String("query", term),
		zap.Float64("lat", coord.Lat),
		zap.Float64("lon", coord.Lon),
	)
	return coord, nil
}

func parseResult(lat, lon string) (geo.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("longitude %q: %w", lon, err)
	}
	c := geo.Coordinate{Lat: la, Lon: lo}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("coordinate out of range: %v", c)
	}
	return c, nil
}

// sanitize keeps letters, digits and spaces and collapses the rest away,
// then trims. OneMap chokes on most punctuation.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
