package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"powdercast/internal/access"
	"powdercast/internal/calendar"
	"powdercast/internal/chart"
	"powdercast/internal/dates"
	"powdercast/internal/forecast"
)

// Upstream is the slice of the weather backend this service consumes.
// Satisfied by client.WeatherClient.
type Upstream interface {
	Locations(ctx context.Context, query string, skiResortsOnly bool, limit int) ([]forecast.Location, error)
	DailyOverview(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.DailyOverview, error)
	DailySegments(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.DaySegments, error)
	Hourly(ctx context.Context, locationID string, startEpoch, endEpoch int64) ([]forecast.HourlySample, error)
}

// Service assembles the forecast view-models: the month calendar grid,
// day segment details, hourly series and chart programs. All upstream
// reads go through the TTL cache.
type Service struct {
	upstream Upstream
	cache    *ForecastCache
	tz       *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu            sync.RWMutex
	lastFetchTime time.Time
	successCount  int
	failureCount  int
}

func NewService(upstream Upstream, cache *ForecastCache, tz *time.Location, logger *zap.Logger) *Service {
	if tz == nil {
		tz = time.Local
	}
	return &Service{
		upstream: upstream,
		cache:    cache,
		tz:       tz,
		logger:   logger,
		now:      time.Now,
	}
}

// Timezone returns the service's display timezone.
func (s *Service) Timezone() *time.Location { return s.tz }

// MonthView builds the calendar grid for one anchor month, merging the
// overview index onto the padded week range and applying the viewer's
// access window.
func (s *Service) MonthView(ctx context.Context, locationID string, anchor calendar.AnchorMonth, w *access.Window, sys forecast.UnitSystem) (forecast.MonthView, error) {
	rng := calendar.BuildRange(anchor, s.tz)

	days, err := s.overviewRange(ctx, locationID, rng)
	if err != nil {
		return forecast.MonthView{}, fmt.Errorf("month view for %s: %w", locationID, err)
	}

	ix := forecast.BuildIndex(rng, days)
	today := s.now().In(s.tz)
	return forecast.BuildMonthView(rng, ix, today, w, sys), nil
}

func (s *Service) overviewRange(ctx context.Context, locationID string, rng calendar.Range) ([]forecast.DailyOverview, error) {
	startKey, endKey := dates.Key(rng.Start), dates.Key(rng.End)
	if cached, ok := s.cache.GetOverview(locationID, startKey, endKey); ok {
		s.logger.Debug("Cache hit for overview range",
			zap.String("location", locationID),
			zap.String("start", startKey),
			zap.String("end", endKey))
		return cached, nil
	}

	startEpoch, endEpoch := dates.DayRangeEpoch(rng.Start, rng.End)
	startTime := time.Now()
	days, err := s.upstream.DailyOverview(ctx, locationID, startEpoch, endEpoch)
	if err != nil {
		s.recordFetch(false)
		return nil, err
	}
	s.recordFetch(true)

	s.logger.Info("Overview range fetched",
		zap.String("location", locationID),
		zap.String("start", startKey),
		zap.String("end", endKey),
		zap.Int("days", len(days)),
		zap.Duration("duration", time.Since(startTime)))

	s.cache.SetOverview(locationID, startKey, endKey, days)
	return days, nil
}

// DaySegments returns the morning/afternoon/night aggregates for one day.
func (s *Service) DaySegments(ctx context.Context, locationID string, date time.Time) ([]forecast.Segment, error) {
	date = date.In(s.tz)
	key := dates.Key(date)
	if cached, ok := s.cache.GetSegments(locationID, key); ok {
		return cached, nil
	}

	startEpoch, endEpoch := dates.DayRangeEpoch(date, date)
	days, err := s.upstream.DailySegments(ctx, locationID, startEpoch, endEpoch)
	if err != nil {
		s.recordFetch(false)
		return nil, fmt.Errorf("segments for %s on %s: %w", locationID, key, err)
	}
	s.recordFetch(true)

	// The upstream answers with a day span; keep only the requested date.
	var segments []forecast.Segment
	for _, day := range days {
		if day.Date == key {
			segments = day.Segments
			break
		}
	}

	s.cache.SetSegments(locationID, key, segments)
	return segments, nil
}

// HourlySeries returns the ascending hourly samples for one day.
func (s *Service) HourlySeries(ctx context.Context, locationID string, date time.Time) ([]forecast.HourlySample, error) {
	date = date.In(s.tz)
	key := dates.Key(date)
	if cached, ok := s.cache.GetHourly(locationID, key); ok {
		return cached, nil
	}

	startEpoch, endEpoch := dates.DayRangeEpoch(date, date)
	samples, err := s.upstream.Hourly(ctx, locationID, startEpoch, endEpoch)
	if err != nil {
		s.recordFetch(false)
		return nil, fmt.Errorf("hourly series for %s on %s: %w", locationID, key, err)
	}
	s.recordFetch(true)

	s.cache.SetHourly(locationID, key, samples)
	return samples, nil
}

// HourlyChart renders the drawing program for one day's hourly series:
// scale computed from the temperatures present, then gridlines, snow
// bars, curve and markers.
func (s *Service) HourlyChart(ctx context.Context, locationID string, date time.Time, opt chart.Options) (chart.Program, []forecast.HourlySample, error) {
	samples, err := s.HourlySeries(ctx, locationID, date)
	if err != nil {
		return chart.Program{}, nil, err
	}

	sc := chart.ComputeScale(chart.TempSamples(samples))
	return chart.Render(samples, sc, opt), samples, nil
}

// Locations proxies the upstream location search through the cache.
func (s *Service) Locations(ctx context.Context, query string, skiResortsOnly bool, limit int) ([]forecast.Location, error) {
	if cached, ok := s.cache.GetLocations(query, skiResortsOnly, limit); ok {
		return cached, nil
	}

	locations, err := s.upstream.Locations(ctx, query, skiResortsOnly, limit)
	if err != nil {
		s.recordFetch(false)
		return nil, err
	}
	s.recordFetch(true)

	s.cache.SetLocations(query, skiResortsOnly, limit, locations)
	return locations, nil
}

// RefreshActiveOverview drops and re-fetches the current month's overview
// for a location. The scheduler calls this on its refresh interval.
func (s *Service) RefreshActiveOverview(ctx context.Context, locationID string) error {
	anchor := calendar.AnchorFor(s.now().In(s.tz))
	rng := calendar.BuildRange(anchor, s.tz)
	s.cache.Invalidate(overviewKey(locationID, dates.Key(rng.Start), dates.Key(rng.End)))

	_, err := s.overviewRange(ctx, locationID, rng)
	if err != nil {
		return fmt.Errorf("refresh overview for %s: %w", locationID, err)
	}
	return nil
}

// LoaderFor binds the service to one location as a drill-down loader for
// the view controller.
func (s *Service) LoaderFor(locationID string) *LocationLoader {
	return &LocationLoader{service: s, locationID: locationID}
}

// LocationLoader adapts the Service to per-date drill-down fetches for a
// fixed location.
type LocationLoader struct {
	service    *Service
	locationID string
}

func (l *LocationLoader) DaySegments(ctx context.Context, date time.Time) ([]forecast.Segment, error) {
	return l.service.DaySegments(ctx, l.locationID, date)
}

func (l *LocationLoader) HourlySeries(ctx context.Context, date time.Time) ([]forecast.HourlySample, error) {
	return l.service.HourlySeries(ctx, l.locationID, date)
}

func (s *Service) recordFetch(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchTime = time.Now()
	if ok {
		s.successCount++
	} else {
		s.failureCount++
	}
}

func (s *Service) GetLastFetchTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetchTime
}

func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"last_fetch_time": s.lastFetchTime,
		"success_count":   s.successCount,
		"failure_count":   s.failureCount,
		"cache_stats":     s.cache.GetStats(),
	}
}
