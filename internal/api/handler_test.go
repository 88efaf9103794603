package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"powdercast/internal/dates"
	"powdercast/internal/forecast"
	"powdercast/internal/services"
	"powdercast/internal/store"
	"powdercast/pkg/client"
)

type fakeUpstream struct {
	overview []forecast.DailyOverview
	segments []forecast.DaySegments
	hourly   []forecast.HourlySample
}

func (f *fakeUpstream) Locations(_ context.Context, _ string, _ bool, _ int) ([]forecast.Location, error) {
	return []forecast.Location{{ID: "loc-1", Name: "Alta"}}, nil
}

func (f *fakeUpstream) DailyOverview(_ context.Context, _ string, _, _ int64) ([]forecast.DailyOverview, error) {
	return f.overview, nil
}

func (f *fakeUpstream) DailySegments(_ context.Context, _ string, _, _ int64) ([]forecast.DaySegments, error) {
	return f.segments, nil
}

func (f *fakeUpstream) Hourly(_ context.Context, _ string, _, _ int64) ([]forecast.HourlySample, error) {
	return f.hourly, nil
}

type fakeAuth struct {
	session    client.Session
	sessionErr error
	magicSent  int
	verified   string
	loggedOut  int
}

func (f *fakeAuth) Session(_ context.Context) (*client.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	s := f.session
	return &s, nil
}

func (f *fakeAuth) RequestMagicLink(_ context.Context, _, _ string) error {
	f.magicSent++
	return nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) error {
	f.verified = token
	return nil
}

func (f *fakeAuth) Logout(_ context.Context) error {
	f.loggedOut++
	return nil
}

type fixture struct {
	app      *fiber.App
	auth     *fakeAuth
	upstream *fakeUpstream
	prefs    store.KV
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	upstream := &fakeUpstream{}
	cache := services.NewForecastCache(time.Minute, 100, zap.NewNop())
	t.Cleanup(cache.Stop)
	svc := services.NewService(upstream, cache, time.UTC, zap.NewNop())

	auth := &fakeAuth{session: client.Session{Authenticated: true, Roles: []string{"advanced"}}}
	prefs := store.NewMemory()
	handler := NewHandler(svc, auth, prefs, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	SetupRoutes(app, handler, zap.NewNop())

	return &fixture{app: app, auth: auth, upstream: upstream, prefs: prefs}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func todayKey() string {
	return time.Now().UTC().Format(dates.KeyLayout)
}

func TestGetMonthReturnsGrid(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/v1/calendar/month?locationId=loc-1&year=2024&month=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "advanced", body["role"])
	month := body["month"].(map[string]interface{})
	assert.Equal(t, "2023-12-31", month["startKey"])
	assert.Len(t, month["weeks"], 5)
}

func TestGetMonthValidatesQuery(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/v1/calendar/month?locationId=loc-1&year=2024&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/v1/calendar/month?year=2024&month=1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDayForbiddenOutsideGuestWindow(t *testing.T) {
	f := newFixture(t)
	f.auth.session = client.Session{} // guest

	resp, body := f.do(t, http.MethodGet, "/api/v1/calendar/day?locationId=loc-1&date=2030-01-01", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["code"])
}

func TestGetDayReturnsSegments(t *testing.T) {
	f := newFixture(t)
	f.upstream.segments = []forecast.DaySegments{
		{Date: todayKey(), Segments: []forecast.Segment{{Label: "Morning"}}},
	}

	resp, body := f.do(t, http.MethodGet, "/api/v1/calendar/day?locationId=loc-1&date="+todayKey(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, todayKey(), body["date"])
	assert.Len(t, body["segments"], 1)
}

func TestHourlyChartFormats(t *testing.T) {
	temp := 24.0
	f := newFixture(t)
	f.upstream.hourly = []forecast.HourlySample{
		{TimestampEpochMs: time.Now().UnixMilli(), Temp: &temp},
	}

	base := "/api/v1/charts/hourly?locationId=loc-1&date=" + todayKey()

	resp, body := f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	program := body["program"].(map[string]interface{})
	assert.NotEmpty(t, program["ops"])

	req := httptest.NewRequest(http.MethodGet, base+"&format=png&dpr=2", nil)
	pngResp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, pngResp.StatusCode)
	assert.Equal(t, "image/png", pngResp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(pngResp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))

	resp, _ = f.do(t, http.MethodGet, base+"&format=bmp", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreferencesRoundTrip(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPut, "/api/v1/preferences",
		map[string]string{"locationId": "loc-9", "units": "metric"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "loc-9", body["locationId"])
	assert.Equal(t, "metric", body["units"])

	resp, _ = f.do(t, http.MethodPut, "/api/v1/preferences", map[string]string{"units": "kelvin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStoredLocationBacksQueries(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.prefs.Set(store.KeyLocationID, "loc-7"))

	resp, _ := f.do(t, http.MethodGet, "/api/v1/calendar/month?year=2024&month=1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionEndpoint(t *testing.T) {
	f := newFixture(t)
	f.auth.session = client.Session{Authenticated: true, Email: "rider@example.com", Roles: []string{"basic"}}

	resp, body := f.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "basic", body["role"])
	window := body["window"].(map[string]interface{})
	assert.Equal(t, float64(3), window["back"])
}

func TestMagicLinkFlow(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/auth/magic-link",
		map[string]string{"email": "rider@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, f.auth.magicSent)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/magic-link", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestViewOpenShiftClose(t *testing.T) {
	f := newFixture(t)
	f.upstream.segments = []forecast.DaySegments{
		{Date: todayKey(), Segments: []forecast.Segment{{Label: "Morning"}}},
	}

	resp, _ := f.do(t, http.MethodPost, "/api/v1/view/day/open?locationId=loc-1&date="+todayKey(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := f.do(t, http.MethodGet, "/api/v1/view/state", nil)
		day := body["day"].(map[string]interface{})
		return day["state"] == "loaded"
	}, time.Second, 10*time.Millisecond)

	resp, body := f.do(t, http.MethodPost, "/api/v1/view/day/shift?direction=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["moved"])

	resp, body = f.do(t, http.MethodPost, "/api/v1/view/day/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	day := body["day"].(map[string]interface{})
	assert.Equal(t, "closed", day["state"])
}

func TestViewStateWithoutSession(t *testing.T) {
	f := newFixture(t)
	resp, _ := f.do(t, http.MethodGet, "/api/v1/view/state", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteReturns404(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Endpoint not found", body["error"])
}
