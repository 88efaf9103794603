package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"powdercast/internal/forecast"
)

// WeatherClient talks to the upstream forecast backend. Date spans are
// passed as the closed epoch-ms interval produced by dates.DayRangeEpoch.
type WeatherClient struct {
	*BaseClient
	baseURL string
}

func NewWeatherClient(baseURL string, config ClientConfig, tokens TokenSource, logger *zap.Logger) *WeatherClient {
	baseClient := NewBaseClient("weather-upstream", config, tokens, logger)
	return &WeatherClient{
		BaseClient: baseClient,
		baseURL:    baseURL,
	}
}

// Locations fetches locations matching query; this service only consumes
// id and name.
func (c *WeatherClient) Locations(ctx context.Context, query string, skiResortsOnly bool, limit int) ([]forecast.Location, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("isSkiResort", strconv.FormatBool(skiResortsOnly))
	params.Set("limit", strconv.Itoa(limit))

	var locations []forecast.Location
	if err := c.GetJSON(ctx, fmt.Sprintf("%s/locations?%s", c.baseURL, params.Encode()), &locations); err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	return locations, nil
}

// DailyOverview fetches the per-date aggregates for a calendar range.
func (c *WeatherClient) DailyOverview(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.DailyOverview, error) {
	var response struct {
		Days []forecast.DailyOverview `json:"days"`
	}
	u := fmt.Sprintf("%s/weather/daily/overview?%s", c.baseURL, rangeParams(locationID, startEpoch, endEpoch))
	if err := c.GetJSON(ctx, u, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch daily overview: %w", err)
	}
	return response.Days, nil
}

// DailySegments fetches the segment aggregates (morning/afternoon/night)
// for a day span.
func (c *WeatherClient) DailySegments(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.DaySegments, error) {
	var response struct {
		Days []forecast.DaySegments `json:"days"`
	}
	u := fmt.Sprintf("%s/weather/daily/segments?%s", c.baseURL, rangeParams(locationID, startEpoch, endEpoch))
	if err := c.GetJSON(ctx, u, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch daily segments: %w", err)
	}
	return response.Days, nil
}

// Hourly fetches the hourly series for a day span, sorted ascending.
func (c *WeatherClient) Hourly(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.HourlySample, error) {
	var response struct {
		Data []forecast.HourlySample `json:"data"`
	}
	u := fmt.Sprintf("%s/weather/hourly?%s", c.baseURL, rangeParams(locationID, startEpoch, endEpoch))
	if err := c.GetJSON(ctx, u, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch hourly data: %w", err)
	}
	forecast.SortSamplesAscending(response.Data)
	return response.Data, nil
}

func rangeParams(locationID string, startEpoch, endEpoch int64) string {
	params := url.Values{}
	params.Set("locationId", locationID)
	params.Set("startDateEpoch", strconv.FormatInt(startEpoch, 10))
	params.Set("endDateEpoch", strconv.FormatInt(endEpoch, 10))
	return params.Encode()
}
