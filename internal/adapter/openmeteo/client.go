// Package openmeteo talks to the Open-Meteo Marine Weather API. The API is
// keyless; requests are plain GETs with query parameters and responses are
// JSON. Response shaping lives in the domain package, this package owns
// transport and error classification.
package openmeteo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/marine-weather-service/internal/domain"
)

// Client fetches marine conditions from the Open-Meteo Marine API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timezone   string
	model      string
	logger     *slog.Logger
}

// NewClient creates a marine API client. The timezone and model are fixed
// request parameters applied to every fetch.
func NewClient(baseURL, timezone, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timezone: timezone,
		model:    model,
		logger:   logger,
	}
}

// FetchCurrent retrieves current conditions for one location.
func (c *Client) FetchCurrent(ctx context.Context, loc domain.Location) (domain.Observation, error) {
	params := url.Values{
		"latitude":  {formatCoord(loc.Latitude)},
		"longitude": {formatCoord(loc.Longitude)},
		"current":   {strings.Join(domain.CurrentFields, ",")},
		"timezone":  {c.timezone},
		"models":    {c.model},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return domain.Observation{}, err
	}
	return domain.ParseMarineResponse(body, c.model)
}

// FetchForecast retrieves the hourly forecast for one location, covering
// the given number of days from today in location time.
func (c *Client) FetchForecast(ctx context.Context, loc domain.Location, days int) (domain.ForecastSeries, error) {
	params := url.Values{
		"latitude":      {formatCoord(loc.Latitude)},
		"longitude":     {formatCoord(loc.Longitude)},
		"hourly":        {strings.Join(domain.CurrentFields, ",")},
		"forecast_days": {strconv.Itoa(days)},
		"timezone":      {c.timezone},
		"models":        {c.model},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return domain.ForecastSeries{}, err
	}
	return domain.ParseForecastResponse(body, c.model)
}

// Probe issues the minimal health-check query: a single field for a single
// location. The response body is parsed so a malformed payload counts as a
// failure, but the data itself is discarded.
func (c *Client) Probe(ctx context.Context, loc domain.Location) error {
	params := url.Values{
		"latitude":  {formatCoord(loc.Latitude)},
		"longitude": {formatCoord(loc.Longitude)},
		"current":   {"wave_height"},
		"timezone":  {"auto"},
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return err
	}
	_, err = domain.ParseMarineResponse(body, c.model)
	return err
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marine API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &domain.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// formatCoord renders a coordinate without trailing zeros, matching what a
// caller configured rather than imposing a precision.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
