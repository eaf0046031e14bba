// Package directions queries the external routing provider for travel
// distance and duration between two addresses, memoized through the
// configured cache.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/openparatransit/paraplan/config"
	"github.com/openparatransit/paraplan/internal/model"
	"github.com/openparatransit/paraplan/pkg/cache"
)

// ErrRouteUnavailable is returned when the provider rejects the request:
// a non-2xx HTTP response or a non-OK status field in the body.
var ErrRouteUnavailable = errors.New("routing provider unavailable")

// Finder is the lookup capability the scheduler depends on.
type Finder interface {
	// GetDirection returns the routed distance/duration from one address to
	// another, departing at the given instant. A nil route with a nil error
	// means the provider found no route between the addresses.
	GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*model.Route, error)
}

// Client calls the Google Directions API over HTTP. Cache reads and writes
// are best-effort: a cache failure degrades to a direct provider call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      cache.Cache

	now func() time.Time // injectable for tests
}

// NewClient creates a directions client. cache may be nil (caching disabled).
func NewClient(cfg config.RoutingConfig, c cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.GoogleAPIToken,
		cache:      c,
		now:        time.Now,
	}
}

// providerResponse mirrors the fields of the Directions API response we use.
type providerResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// GetDirection resolves the first leg of the first route between from and to.
//
// The cache key is the address pair only; departure time is deliberately not
// part of it, so intra-day travel-time variance is absorbed by the TTL.
func (c *Client) GetDirection(ctx context.Context, from, to string, departureAt time.Time) (*model.Route, error) {
	key := cacheKey(from, to)

	if c.cache != nil {
		route, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			log.Printf("[directions] cache read for %q failed, querying provider: %v", key, err)
		} else if ok {
			return &route, nil
		}
	}

	route, err := c.query(ctx, from, to, departureAt)
	if err != nil || route == nil {
		return route, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, *route); err != nil {
			log.Printf("[directions] cache write for %q failed: %v", key, err)
		}
	}
	return route, nil
}

func (c *Client) query(ctx context.Context, from, to string, departureAt time.Time) (*model.Route, error) {
	params := url.Values{}
	params.Set("origin", from)
	params.Set("destination", to)
	params.Set("key", c.apiKey)

	// The provider rejects departure times in the past, so the parameter is
	// only sent for future departures, rounded up to whole unix seconds.
	if now := c.now(); departureAt.After(now) {
		params.Set("departure_time", fmt.Sprintf("%d", unixCeil(departureAt)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("directions: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRouteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrRouteUnavailable, resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRouteUnavailable, err)
	}

	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: status %s: %s", ErrRouteUnavailable, body.Status, body.ErrorMessage)
	}

	if len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return nil, nil
	}

	leg := body.Routes[0].Legs[0]
	return &model.Route{
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
	}, nil
}

func cacheKey(from, to string) string {
	return from + "|" + to
}

// unixCeil rounds the instant up to whole seconds.
func unixCeil(t time.Time) int64 {
	s := t.Unix()
	if t.Nanosecond() > 0 {
		s++
	}
	return s
}
