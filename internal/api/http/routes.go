package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-map/internal/mapview"
	"github.com/i474232898/weather-map/internal/store"
	"github.com/i474232898/weather-map/internal/weather"
)

// SessionCookie carries the viewer session id.
const SessionCookie = "wm_session"

var validate = validator.New()

// SessionGauge receives the live session count when sessions are created.
type SessionGauge interface {
	SetSessions(n int)
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Service  *weather.Service
	Sessions *store.Sessions
	Renderer mapview.Renderer

	// InitialTimestamp picks the timestamp shown when the page opens.
	InitialTimestamp func(now time.Time) weather.Timestamp

	// Metrics is served at /metrics when set.
	Metrics http.Handler
	Gauge   SessionGauge
}

type handler struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.InitialTimestamp == nil {
		deps.InitialTimestamp = func(now time.Time) weather.Timestamp { return weather.IntervalStart(now, 3) }
	}
	if deps.Renderer.Palette.Len() < 2 {
		deps.Renderer = mapview.NewRenderer(deps.Renderer.Palette, deps.Renderer.RadiusPx)
	}
	h := &handler{Deps: deps}

	app.Get("/", h.page)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	v1 := app.Group("/api/v1")
	v1.Get("/timestamps", h.timestamps)
	v1.Get("/map", h.mapLayout)
	v1.Get("/stations/:code", h.station)
	v1.Get("/stations/:code/popup", h.stationPopup)
	v1.Get("/color", h.color)
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// session returns the caller's session, starting one and setting the cookie
// when the request carries none or an expired one.
func (h *handler) session(c *fiber.Ctx) *weather.Session {
	sess, created := h.Sessions.GetOrCreate(c.Cookies(SessionCookie))
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		if h.Gauge != nil {
			h.Gauge.SetSessions(h.Sessions.Len())
		}
	}
	return sess
}

// pageQuery holds query parameters for the map page.
type pageQuery struct {
	Timestamp string `query:"timestamp" validate:"omitempty,len=10,numeric"`
	Width     int    `query:"width" validate:"gte=0"`
}

func (h *handler) page(c *fiber.Ctx) error {
	var q pageQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ts := h.InitialTimestamp(time.Now())
	if q.Timestamp != "" {
		parsed, err := weather.ParseTimestamp(q.Timestamp)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ts = parsed
	}
	if q.Width == 0 {
		q.Width = 1024
	}

	h.session(c)

	var buf bytes.Buffer
	if err := mapview.RenderPage(&buf, mapview.NewPageData(ts, q.Width)); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}

func (h *handler) timestamps(c *fiber.Ctx) error {
	cat, at := h.Service.Catalog()
	if at.IsZero() {
		var err error
		if cat, err = h.Service.RefreshCatalog(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to list available timestamps")
		}
		_, at = h.Service.Catalog()
	}

	latest, _ := cat.Latest()
	return c.JSON(fiber.Map{
		"dates":       cat.Dates,
		"hours":       cat.Hours,
		"latest":      latest,
		"default":     h.InitialTimestamp(time.Now()),
		"refreshedAt": at,
	})
}

// mapQuery holds query parameters for the map endpoint. Zoom falls back to
// the width breakpoints when absent.
type mapQuery struct {
	Timestamp string `query:"timestamp" validate:"required,len=10,numeric"`
	Zoom      int    `query:"zoom" validate:"omitempty,min=4,max=12"`
	Width     int    `query:"width" validate:"gte=0"`
}

func (h *handler) mapLayout(c *fiber.Ctx) error {
	var q mapQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ts, err := weather.ParseTimestamp(q.Timestamp)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	zoom := q.Zoom
	if zoom == 0 {
		zoom = mapview.ZoomForWidth(q.Width)
	}

	view, err := h.Service.Load(c.UserContext(), h.session(c), ts)
	if err != nil {
		return loadError(err)
	}
	return c.JSON(h.Renderer.Layout(view, zoom))
}

// loadError maps a failed load to a status. 404 means the data does not
// exist for any layer; upstream outages are 502.
func loadError(err error) error {
	switch {
	case errors.Is(err, weather.ErrStaleLoad):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusRequestTimeout, err.Error())
	}

	les := weather.LoadErrors(err)
	if len(les) == 0 {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	for _, le := range les {
		if !le.Missing() {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
	}
	return fiber.NewError(fiber.StatusNotFound, err.Error())
}

// stationQuery identifies one station observation.
type stationQuery struct {
	Code      string `query:"-" validate:"required,alphanum,max=16"`
	Timestamp string `query:"timestamp" validate:"required,len=10,numeric"`
}

func (h *handler) stationDetail(c *fiber.Ctx) (weather.StationDetail, error) {
	var q stationQuery
	if err := c.QueryParser(&q); err != nil {
		return weather.StationDetail{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.Code = c.Params("code")
	if err := validate.Struct(q); err != nil {
		return weather.StationDetail{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ts, err := weather.ParseTimestamp(q.Timestamp)
	if err != nil {
		return weather.StationDetail{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	d, err := h.Service.StationDetail(c.UserContext(), q.Code, ts)
	if err != nil {
		return weather.StationDetail{}, fiber.NewError(fiber.StatusBadGateway, "station details unavailable")
	}
	return d, nil
}

func (h *handler) station(c *fiber.Ctx) error {
	d, err := h.stationDetail(c)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *handler) stationPopup(c *fiber.Ctx) error {
	d, err := h.stationDetail(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := mapview.RenderPopup(&buf, d); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render popup")
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}

// colorQuery asks for the ramp colour of value within [min, max].
type colorQuery struct {
	Value *float64 `query:"value" validate:"required"`
	Min   *float64 `query:"min" validate:"required"`
	Max   *float64 `query:"max" validate:"required"`
}

func (h *handler) color(c *fiber.Ctx) error {
	var q colorQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if *q.Min > *q.Max {
		return fiber.NewError(fiber.StatusBadRequest, "min must not exceed max")
	}

	col := h.Renderer.Palette.ColorFor(*q.Value, *q.Min, *q.Max)
	return c.JSON(fiber.Map{
		"color": col.String(),
		"hex":   col.Hex(),
	})
}
