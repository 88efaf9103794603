// Package view drives the day/hour drill-down modals: a small state
// machine per modal plus the cancellation-guard discipline that keeps a
// slow, superseded fetch from overwriting newer state.
package view

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"powdercast/internal/access"
	"powdercast/internal/dates"
	"powdercast/internal/forecast"
)

// State is the lifecycle of one modal:
// Closed -> Loading -> Loaded|Empty -> Closed, with Loaded|Empty ->
// Loading again on navigation. A failed fetch lands in Empty with Err
// recorded; the previously shown data is gone but the modal survives.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateLoaded
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Loader fetches drill-down data for one date. Implemented by the
// forecast service.
type Loader interface {
	DaySegments(ctx context.Context, date time.Time) ([]forecast.Segment, error)
	HourlySeries(ctx context.Context, date time.Time) ([]forecast.HourlySample, error)
}

// Snapshot is a point-in-time copy of one modal's state.
type Snapshot struct {
	State    State                   `json:"state"`
	Date     time.Time               `json:"date"`
	Key      string                  `json:"key,omitempty"`
	Segments []forecast.Segment      `json:"segments,omitempty"`
	Hours    []forecast.HourlySample `json:"hours,omitempty"`
	Err      error                   `json:"-"`
}

// modal holds one modal's state. gen is the cancellation token: every
// open/shift/close bumps it, and a completion handler whose token no
// longer matches must discard its result.
type modal struct {
	state    State
	date     time.Time
	gen      uint64
	segments []forecast.Segment
	hours    []forecast.HourlySample
	err      error
}

func (m *modal) supersede() uint64 {
	m.gen++
	return m.gen
}

func (m *modal) reset(state State) {
	m.state = state
	m.segments = nil
	m.hours = nil
	m.err = nil
}

// Controller orchestrates the two modals. All state transitions run
// under one mutex; fetches run in goroutines and re-enter through the
// token check.
type Controller struct {
	mu     sync.Mutex
	loader Loader
	window *access.Window
	now    func() time.Time
	logger *zap.Logger

	day  modal
	hour modal
}

func NewController(loader Loader, window *access.Window, now func() time.Time, logger *zap.Logger) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{
		loader: loader,
		window: window,
		now:    now,
		logger: logger,
	}
}

// OpenDay opens the day-detail modal for date and starts its fetch.
func (c *Controller) OpenDay(ctx context.Context, date time.Time) {
	c.mu.Lock()
	token := c.day.supersede()
	c.day.reset(StateLoading)
	c.day.date = date
	c.mu.Unlock()

	go c.fetchDay(ctx, date, token)
}

// OpenHour opens the hour-detail modal for date. Opening it from the
// day view closes the day modal as a side effect.
func (c *Controller) OpenHour(ctx context.Context, date time.Time) {
	c.mu.Lock()
	if c.day.state != StateClosed {
		c.day.supersede()
		c.day.reset(StateClosed)
	}
	token := c.hour.supersede()
	c.hour.reset(StateLoading)
	c.hour.date = date
	c.mu.Unlock()

	go c.fetchHour(ctx, date, token)
}

// ShiftDay navigates the day modal by direction (±1 day). The move is a
// no-op when the modal is closed or the candidate date falls outside the
// viewer's access window; it reports whether navigation happened.
func (c *Controller) ShiftDay(ctx context.Context, direction int) bool {
	c.mu.Lock()
	if c.day.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	candidate := c.day.date.AddDate(0, 0, direction)
	if !access.Visible(candidate, c.now(), c.window) {
		c.mu.Unlock()
		c.logger.Debug("Day shift blocked by access window",
			zap.String("candidate", dates.Key(candidate)))
		return false
	}
	token := c.day.supersede()
	c.day.reset(StateLoading)
	c.day.date = candidate
	c.mu.Unlock()

	go c.fetchDay(ctx, candidate, token)
	return true
}

// ShiftHour navigates the hour modal by direction (±1 day), with the
// same access-window gate as ShiftDay.
func (c *Controller) ShiftHour(ctx context.Context, direction int) bool {
	c.mu.Lock()
	if c.hour.state == StateClosed {
		c.mu.Unlock()
		return false
	}
	candidate := c.hour.date.AddDate(0, 0, direction)
	if !access.Visible(candidate, c.now(), c.window) {
		c.mu.Unlock()
		c.logger.Debug("Hour shift blocked by access window",
			zap.String("candidate", dates.Key(candidate)))
		return false
	}
	token := c.hour.supersede()
	c.hour.reset(StateLoading)
	c.hour.date = candidate
	c.mu.Unlock()

	go c.fetchHour(ctx, candidate, token)
	return true
}

// CloseDay closes the day modal from any state. Whatever fetch is in
// flight becomes stale and its result will be discarded.
func (c *Controller) CloseDay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.day.supersede()
	c.day.reset(StateClosed)
}

// CloseHour closes the hour modal from any state.
func (c *Controller) CloseHour() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hour.supersede()
	c.hour.reset(StateClosed)
}

// DaySnapshot returns the day modal's current state.
func (c *Controller) DaySnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(&c.day)
}

// HourSnapshot returns the hour modal's current state.
func (c *Controller) HourSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(&c.hour)
}

func snapshotOf(m *modal) Snapshot {
	s := Snapshot{
		State:    m.state,
		Date:     m.date,
		Segments: m.segments,
		Hours:    m.hours,
		Err:      m.err,
	}
	if m.state != StateClosed {
		s.Key = dates.Key(m.date)
	}
	return s
}

func (c *Controller) fetchDay(ctx context.Context, date time.Time, token uint64) {
	segments, err := c.loader.DaySegments(ctx, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.day.gen {
		c.logger.Debug("Discarding stale day result", zap.String("date", dates.Key(date)))
		return
	}

	if err != nil {
		c.day.err = err
		c.day.state = StateEmpty
		return
	}
	c.day.segments = segments
	if len(segments) == 0 {
		c.day.state = StateEmpty
		return
	}
	c.day.state = StateLoaded
}

func (c *Controller) fetchHour(ctx context.Context, date time.Time, token uint64) {
	hours, err := c.loader.HourlySeries(ctx, date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.hour.gen {
		c.logger.Debug("Discarding stale hourly result", zap.String("date", dates.Key(date)))
		return
	}

	if err != nil {
		c.hour.err = err
		c.hour.state = StateEmpty
		return
	}
	c.hour.hours = hours
	if len(hours) == 0 {
		c.hour.state = StateEmpty
		return
	}
	c.hour.state = StateLoaded
}
