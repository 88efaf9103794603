package view

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"powdercast/internal/access"
	"powdercast/internal/forecast"
)

// fakeLoader parks every fetch on a per-date gate so tests decide the
// order in which responses land.
type fakeLoader struct {
	gates    map[string]chan struct{}
	segments map[string][]forecast.Segment
	hours    map[string][]forecast.HourlySample
	errs     map[string]error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		gates:    make(map[string]chan struct{}),
		segments: make(map[string][]forecast.Segment),
		hours:    make(map[string][]forecast.HourlySample),
		errs:     make(map[string]error),
	}
}

func (f *fakeLoader) gate(key string) chan struct{} {
	if _, ok := f.gates[key]; !ok {
		f.gates[key] = make(chan struct{})
	}
	return f.gates[key]
}

func (f *fakeLoader) release(key string) { close(f.gates[key]) }

func (f *fakeLoader) DaySegments(_ context.Context, date time.Time) ([]forecast.Segment, error) {
	key := date.Format("2006-01-02")
	<-f.gates[key]
	return f.segments[key], f.errs[key]
}

func (f *fakeLoader) HourlySeries(_ context.Context, date time.Time) ([]forecast.HourlySample, error) {
	key := date.Format("2006-01-02")
	<-f.gates[key]
	return f.hours[key], f.errs[key]
}

func day(t *testing.T, key string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", key)
	require.NoError(t, err)
	return d
}

func fixedNow(t *testing.T) func() time.Time {
	t.Helper()
	now := day(t, "2024-03-15").Add(8 * time.Hour)
	return func() time.Time { return now }
}

func someSegments() []forecast.Segment {
	return []forecast.Segment{{Label: "Morning", RepresentativeHour: forecast.RepresentativeHour{Icon: "snow"}}}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, time.Second, 5*time.Millisecond)
}

func TestOpenDayLifecycle(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.segments["2024-03-15"] = someSegments()

	c := NewController(loader, nil, fixedNow(t), zap.NewNop())
	require.Equal(t, StateClosed, c.DaySnapshot().State)

	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	snap := c.DaySnapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.Equal(t, "2024-03-15", snap.Key)

	loader.release("2024-03-15")
	eventually(t, func() bool { return c.DaySnapshot().State == StateLoaded })
	snap = c.DaySnapshot()
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, "Morning", snap.Segments[0].Label)

	c.CloseDay()
	snap = c.DaySnapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Nil(t, snap.Segments)
}

func TestStaleDayResultDiscarded(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.gate("2024-03-16")
	loader.segments["2024-03-15"] = []forecast.Segment{{Label: "Morning", RepresentativeHour: forecast.RepresentativeHour{Icon: "slow"}}}
	loader.segments["2024-03-16"] = []forecast.Segment{{Label: "Morning", RepresentativeHour: forecast.RepresentativeHour{Icon: "fast"}}}

	c := NewController(loader, nil, fixedNow(t), zap.NewNop())

	// First open is superseded by a shift before its fetch returns.
	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	require.True(t, c.ShiftDay(context.Background(), 1))

	loader.release("2024-03-16")
	eventually(t, func() bool { return c.DaySnapshot().State == StateLoaded })

	// The slow first fetch finishes last and must change nothing.
	loader.release("2024-03-15")
	time.Sleep(20 * time.Millisecond)

	snap := c.DaySnapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, "2024-03-16", snap.Key)
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, "fast", snap.Segments[0].RepresentativeHour.Icon)
}

func TestCloseDiscardsInFlightFetch(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.segments["2024-03-15"] = someSegments()

	c := NewController(loader, nil, fixedNow(t), zap.NewNop())
	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	c.CloseDay()

	loader.release("2024-03-15")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateClosed, c.DaySnapshot().State)
}

func TestShiftGatedByAccessWindow(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.segments["2024-03-15"] = someSegments()

	window := access.WindowFor(access.RoleGuest) // today and tomorrow only
	c := NewController(loader, window, fixedNow(t), zap.NewNop())

	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	loader.release("2024-03-15")
	eventually(t, func() bool { return c.DaySnapshot().State == StateLoaded })

	// Yesterday is outside the guest window: no-op, state untouched.
	assert.False(t, c.ShiftDay(context.Background(), -1))
	snap := c.DaySnapshot()
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, "2024-03-15", snap.Key)

	// Tomorrow is inside it.
	loader.gate("2024-03-16")
	loader.segments["2024-03-16"] = someSegments()
	assert.True(t, c.ShiftDay(context.Background(), 1))
	loader.release("2024-03-16")
	eventually(t, func() bool { return c.DaySnapshot().Key == "2024-03-16" })
}

func TestShiftOnClosedModalIsNoop(t *testing.T) {
	c := NewController(newFakeLoader(), nil, fixedNow(t), zap.NewNop())
	assert.False(t, c.ShiftDay(context.Background(), 1))
	assert.False(t, c.ShiftHour(context.Background(), -1))
}

func TestEmptyAndErrorStates(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.gate("2024-03-16")
	loader.errs["2024-03-16"] = errors.New("upstream down")

	c := NewController(loader, nil, fixedNow(t), zap.NewNop())

	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	loader.release("2024-03-15")
	eventually(t, func() bool { return c.DaySnapshot().State == StateEmpty })
	assert.NoError(t, c.DaySnapshot().Err)

	c.OpenDay(context.Background(), day(t, "2024-03-16"))
	loader.release("2024-03-16")
	eventually(t, func() bool { return c.DaySnapshot().Err != nil })
	assert.Equal(t, StateEmpty, c.DaySnapshot().State)
}

func TestOpenHourClosesDayModal(t *testing.T) {
	loader := newFakeLoader()
	loader.gate("2024-03-15")
	loader.segments["2024-03-15"] = someSegments()
	loader.hours["2024-03-15"] = []forecast.HourlySample{{TimestampEpochMs: 1710500400000}}

	c := NewController(loader, nil, fixedNow(t), zap.NewNop())
	c.OpenDay(context.Background(), day(t, "2024-03-15"))
	loader.release("2024-03-15")
	eventually(t, func() bool { return c.DaySnapshot().State == StateLoaded })

	c.OpenHour(context.Background(), day(t, "2024-03-15"))
	assert.Equal(t, StateClosed, c.DaySnapshot().State)
	eventually(t, func() bool { return c.HourSnapshot().State == StateLoaded })
	require.Len(t, c.HourSnapshot().Hours, 1)

	c.CloseHour()
	assert.Equal(t, StateClosed, c.HourSnapshot().State)
}
