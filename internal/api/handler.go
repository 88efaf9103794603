package api

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"powdercast/internal/access"
	"powdercast/internal/calendar"
	"powdercast/internal/chart"
	"powdercast/internal/dates"
	"powdercast/internal/forecast"
	"powdercast/internal/services"
	"powdercast/internal/store"
	"powdercast/internal/view"
	"powdercast/pkg/client"
)

// SessionSource is the slice of the auth client the handlers use.
type SessionSource interface {
	Session(ctx context.Context) (*client.Session, error)
	RequestMagicLink(ctx context.Context, email, redirectPath string) error
	Verify(ctx context.Context, token string) error
	Logout(ctx context.Context) error
}

// SchedulerStatus reports the background refresh state for /metrics.
type SchedulerStatus interface {
	GetStatus() map[string]interface{}
}

type Handler struct {
	service   *services.Service
	auth      SessionSource
	prefs     store.KV
	views     *ViewRegistry
	scheduler SchedulerStatus
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewHandler(service *services.Service, auth SessionSource, prefs store.KV, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		auth:     auth,
		prefs:    prefs,
		views:    NewViewRegistry(),
		validate: validator.New(),
		logger:   logger,
	}
}

// WithScheduler attaches the background scheduler for status reporting.
func (h *Handler) WithScheduler(s SchedulerStatus) *Handler {
	h.scheduler = s
	return h
}

// resolveWindow derives the viewer's access window from the auth session.
// Any session failure degrades to guest rather than erroring the request.
func (h *Handler) resolveWindow(ctx context.Context) (access.Role, *access.Window) {
	session, err := h.auth.Session(ctx)
	if err != nil {
		h.logger.Warn("Session lookup failed, degrading to guest", zap.Error(err))
		return access.RoleGuest, access.WindowFor(access.RoleGuest)
	}
	role := access.FromTags(session.Authenticated, session.Roles)
	return role, access.WindowFor(role)
}

// resolveUnits prefers the query parameter, then the stored preference.
func (h *Handler) resolveUnits(c *fiber.Ctx) forecast.UnitSystem {
	if q := c.Query("units"); q != "" {
		return forecast.ParseUnitSystem(q)
	}
	stored, _ := h.prefs.Get(store.KeyUnitSystem)
	return forecast.ParseUnitSystem(stored)
}

// resolveLocation prefers the query parameter, then the stored preference.
func (h *Handler) resolveLocation(c *fiber.Ctx) (string, error) {
	if id := c.Query("locationId"); id != "" {
		return id, nil
	}
	if id, ok := h.prefs.Get(store.KeyLocationID); ok && id != "" {
		return id, nil
	}
	return "", BadRequest("locationId is required")
}

func (h *Handler) parseDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, BadRequest("date is required")
	}
	date, err := time.ParseInLocation(dates.KeyLayout, raw, h.service.Timezone())
	if err != nil {
		return time.Time{}, BadRequest("date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

// GetLocations handles GET /api/v1/locations
func (h *Handler) GetLocations(c *fiber.Ctx) error {
	query := c.Query("q")
	skiResortsOnly := c.QueryBool("skiResortsOnly", true)
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		return BadRequest("limit must be between 1 and 100")
	}

	locations, err := h.service.Locations(c.Context(), query, skiResortsOnly, limit)
	if err != nil {
		return Upstream(err)
	}
	return c.JSON(fiber.Map{"locations": locations})
}

type monthQuery struct {
	Year  int `query:"year" validate:"required,gte=1970,lte=2100"`
	Month int `query:"month" validate:"required,gte=1,lte=12"`
}

// GetMonth handles GET /api/v1/calendar/month
func (h *Handler) GetMonth(c *fiber.Ctx) error {
	locationID, err := h.resolveLocation(c)
	if err != nil {
		return err
	}

	var q monthQuery
	if err := c.QueryParser(&q); err != nil {
		return BadRequest("invalid month query")
	}
	if err := h.validate.Struct(q); err != nil {
		return BadRequest("year must be 1970-2100 and month 1-12")
	}

	role, window := h.resolveWindow(c.Context())
	anchor := calendar.AnchorMonth{Year: q.Year, Month: time.Month(q.Month)}

	monthView, err := h.service.MonthView(c.Context(), locationID, anchor, window, h.resolveUnits(c))
	if err != nil {
		return Upstream(err)
	}

	return c.JSON(fiber.Map{
		"role":  role,
		"month": monthView,
	})
}

// GetDay handles GET /api/v1/calendar/day
func (h *Handler) GetDay(c *fiber.Ctx) error {
	locationID, err := h.resolveLocation(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}

	_, window := h.resolveWindow(c.Context())
	if !access.Visible(date, time.Now().In(h.service.Timezone()), window) {
		return Forbidden("Date is outside your access window")
	}

	segments, err := h.service.DaySegments(c.Context(), locationID, date)
	if err != nil {
		return Upstream(err)
	}

	return c.JSON(fiber.Map{
		"date":     dates.Key(date),
		"segments": segments,
	})
}

// GetHours handles GET /api/v1/calendar/hours
func (h *Handler) GetHours(c *fiber.Ctx) error {
	locationID, err := h.resolveLocation(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}

	_, window := h.resolveWindow(c.Context())
	if !access.Visible(date, time.Now().In(h.service.Timezone()), window) {
		return Forbidden("Date is outside your access window")
	}

	samples, err := h.service.HourlySeries(c.Context(), locationID, date)
	if err != nil {
		return Upstream(err)
	}

	return c.JSON(fiber.Map{
		"date":  dates.Key(date),
		"hours": samples,
	})
}

type chartQuery struct {
	Width    float64 `query:"width" validate:"gte=0,lte=4096"`
	Height   float64 `query:"height" validate:"gte=0,lte=4096"`
	DPR      float64 `query:"dpr" validate:"gte=0,lte=8"`
	SnowBars bool    `query:"snowBars"`
	Format   string  `query:"format" validate:"omitempty,oneof=json png svg"`
}

// GetHourlyChart handles GET /api/v1/charts/hourly. format=json returns
// the drawing program; png and svg rasterize it server-side.
func (h *Handler) GetHourlyChart(c *fiber.Ctx) error {
	locationID, err := h.resolveLocation(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}

	q := chartQuery{Width: 360, Height: 180, DPR: 1, SnowBars: true, Format: "json"}
	if err := c.QueryParser(&q); err != nil {
		return BadRequest("invalid chart query")
	}
	if err := h.validate.Struct(q); err != nil {
		return BadRequest("chart dimensions out of range or unknown format")
	}

	_, window := h.resolveWindow(c.Context())
	if !access.Visible(date, time.Now().In(h.service.Timezone()), window) {
		return Forbidden("Date is outside your access window")
	}

	opt := chart.Options{Width: q.Width, Height: q.Height, DPR: q.DPR, SnowBars: q.SnowBars}
	program, samples, err := h.service.HourlyChart(c.Context(), locationID, date, opt)
	if err != nil {
		return Upstream(err)
	}

	switch q.Format {
	case "png":
		c.Set(fiber.HeaderContentType, "image/png")
		if err := chart.RasterizePNG(program, c.Response().BodyWriter()); err != nil {
			return Upstream(err)
		}
		return nil
	case "svg":
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		if err := chart.RasterizeSVG(program, c.Response().BodyWriter()); err != nil {
			return Upstream(err)
		}
		return nil
	default:
		return c.JSON(fiber.Map{
			"date":    dates.Key(date),
			"samples": len(samples),
			"program": program,
		})
	}
}

type preferencesBody struct {
	LocationID string `json:"locationId"`
	Units      string `json:"units" validate:"omitempty,oneof=imperial metric"`
}

// GetPreferences handles GET /api/v1/preferences
func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	locationID, _ := h.prefs.Get(store.KeyLocationID)
	units, _ := h.prefs.Get(store.KeyUnitSystem)

	return c.JSON(fiber.Map{
		"locationId": locationID,
		"units":      string(forecast.ParseUnitSystem(units)),
	})
}

// PutPreferences handles PUT /api/v1/preferences
func (h *Handler) PutPreferences(c *fiber.Ctx) error {
	var body preferencesBody
	if err := c.BodyParser(&body); err != nil {
		return BadRequest("invalid preferences body")
	}
	if err := h.validate.Struct(body); err != nil {
		return BadRequest("units must be imperial or metric")
	}

	if body.LocationID != "" {
		if err := h.prefs.Set(store.KeyLocationID, body.LocationID); err != nil {
			return Upstream(err)
		}
	}
	if body.Units != "" {
		if err := h.prefs.Set(store.KeyUnitSystem, body.Units); err != nil {
			return Upstream(err)
		}
	}
	return h.GetPreferences(c)
}

type magicLinkBody struct {
	Email        string `json:"email" validate:"required,email"`
	RedirectPath string `json:"redirectPath"`
}

// PostMagicLink handles POST /api/v1/auth/magic-link
func (h *Handler) PostMagicLink(c *fiber.Ctx) error {
	var body magicLinkBody
	if err := c.BodyParser(&body); err != nil {
		return BadRequest("invalid magic link body")
	}
	if err := h.validate.Struct(body); err != nil {
		return BadRequest("a valid email is required")
	}

	if err := h.auth.RequestMagicLink(c.Context(), body.Email, body.RedirectPath); err != nil {
		return Upstream(err)
	}
	return c.JSON(fiber.Map{"sent": true})
}

// PostVerify handles POST /api/v1/auth/verify
func (h *Handler) PostVerify(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" {
		return BadRequest("token is required")
	}

	if err := h.auth.Verify(c.Context(), body.Token); err != nil {
		return Unauthorized("Magic link token rejected")
	}
	return h.GetSession(c)
}

// PostLogout handles POST /api/v1/auth/logout
func (h *Handler) PostLogout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.Context()); err != nil {
		h.logger.Warn("Logout call failed, tokens cleared anyway", zap.Error(err))
	}
	return c.JSON(fiber.Map{"authenticated": false})
}

// GetSession handles GET /api/v1/auth/session
func (h *Handler) GetSession(c *fiber.Ctx) error {
	session, err := h.auth.Session(c.Context())
	if err != nil {
		session = &client.Session{}
	}
	role := access.FromTags(session.Authenticated, session.Roles)

	resp := fiber.Map{
		"authenticated": session.Authenticated,
		"email":         session.Email,
		"role":          role,
	}
	if w := access.WindowFor(role); w != nil {
		resp["window"] = fiber.Map{"back": w.Back, "forward": w.Forward}
	}
	return c.JSON(resp)
}

func (h *Handler) sessionID(c *fiber.Ctx) string {
	if id := c.Get("X-Session-ID"); id != "" {
		return id
	}
	return "default"
}

// PostViewOpen handles POST /api/v1/view/:modal/open for modal day|hour.
func (h *Handler) PostViewOpen(c *fiber.Ctx) error {
	modal := c.Params("modal")
	if modal != "day" && modal != "hour" {
		return NotFound("Unknown modal")
	}

	locationID, err := h.resolveLocation(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}

	_, window := h.resolveWindow(c.Context())
	if !access.Visible(date, time.Now().In(h.service.Timezone()), window) {
		return Forbidden("Date is outside your access window")
	}

	controller := h.views.Acquire(h.sessionID(c), locationID, func() *view.Controller {
		return view.NewController(h.service.LoaderFor(locationID), window, nil, h.logger)
	})

	if modal == "day" {
		controller.OpenDay(context.Background(), date)
	} else {
		controller.OpenHour(context.Background(), date)
	}
	return h.viewState(c, controller)
}

// PostViewShift handles POST /api/v1/view/:modal/shift?direction=1|-1
func (h *Handler) PostViewShift(c *fiber.Ctx) error {
	modal := c.Params("modal")
	if modal != "day" && modal != "hour" {
		return NotFound("Unknown modal")
	}

	direction, err := strconv.Atoi(c.Query("direction", "1"))
	if err != nil || (direction != 1 && direction != -1) {
		return BadRequest("direction must be 1 or -1")
	}

	controller, ok := h.views.Lookup(h.sessionID(c))
	if !ok {
		return NotFound("No open view for this session")
	}

	var moved bool
	if modal == "day" {
		moved = controller.ShiftDay(context.Background(), direction)
	} else {
		moved = controller.ShiftHour(context.Background(), direction)
	}

	state := h.stateBody(controller)
	state["moved"] = moved
	return c.JSON(state)
}

// PostViewClose handles POST /api/v1/view/:modal/close
func (h *Handler) PostViewClose(c *fiber.Ctx) error {
	modal := c.Params("modal")
	if modal != "day" && modal != "hour" {
		return NotFound("Unknown modal")
	}

	controller, ok := h.views.Lookup(h.sessionID(c))
	if !ok {
		return NotFound("No open view for this session")
	}

	if modal == "day" {
		controller.CloseDay()
	} else {
		controller.CloseHour()
	}
	return h.viewState(c, controller)
}

// GetViewState handles GET /api/v1/view/state
func (h *Handler) GetViewState(c *fiber.Ctx) error {
	controller, ok := h.views.Lookup(h.sessionID(c))
	if !ok {
		return NotFound("No open view for this session")
	}
	return h.viewState(c, controller)
}

func (h *Handler) viewState(c *fiber.Ctx, controller *view.Controller) error {
	return c.JSON(h.stateBody(controller))
}

func (h *Handler) stateBody(controller *view.Controller) fiber.Map {
	return fiber.Map{
		"day":  snapshotBody(controller.DaySnapshot()),
		"hour": snapshotBody(controller.HourSnapshot()),
	}
}

func snapshotBody(s view.Snapshot) fiber.Map {
	body := fiber.Map{"state": s.State.String()}
	if s.Key != "" {
		body["date"] = s.Key
	}
	if s.Segments != nil {
		body["segments"] = s.Segments
	}
	if s.Hours != nil {
		body["hours"] = s.Hours
	}
	if s.Err != nil {
		body["error"] = s.Err.Error()
	}
	return body
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "healthy",
		"timestamp":  time.Now(),
		"last_fetch": h.service.GetLastFetchTime(),
		"uptime":     time.Since(startTime).String(),
		"stats":      h.service.GetStats(),
	})
}

// GetMetrics handles GET /api/v1/metrics
func (h *Handler) GetMetrics(c *fiber.Ctx) error {
	metrics := fiber.Map{
		"metrics":   h.service.GetStats(),
		"timestamp": time.Now(),
	}
	if h.scheduler != nil {
		metrics["scheduler"] = h.scheduler.GetStatus()
	}
	return c.JSON(metrics)
}

var startTime = time.Now()
