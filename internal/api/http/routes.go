package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-client/internal/location"
	"github.com/i474232898/weather-client/internal/network"
	"github.com/i474232898/weather-client/internal/render"
	"github.com/i474232898/weather-client/internal/session"
	"github.com/i474232898/weather-client/internal/weather"
)

var validate = validator.New()

// Session is the part of the orchestrator the HTTP layer drives.
type Session interface {
	Screen() *session.Screen
	Refresh(ctx context.Context, force bool) error
	Retry(ctx context.Context) error
}

// Deps wires the handlers. Nil feeds leave their bridge endpoints unregistered.
type Deps struct {
	Session   Session
	Locations *location.Feed
	Network   *network.Feed
	// Units is used by the text rendering of the forecast.
	Units string
}

const commandTimeout = 5 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		state := deps.Session.Screen().Current()
		if c.Query("format") == "text" {
			return c.SendString(render.View(state, deps.Units, time.Now()))
		}
		return c.JSON(state)
	})

	v1.Post("/forecast/refresh", func(c *fiber.Ctx) error {
		var req refreshRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if q := c.Query("force"); q != "" {
			force, err := strconv.ParseBool(q)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "force must be a boolean")
			}
			req.Force = force
		}

		return accepted(c, func(ctx context.Context) error {
			return deps.Session.Refresh(ctx, req.Force)
		})
	})

	v1.Post("/forecast/retry", func(c *fiber.Ctx) error {
		return accepted(c, deps.Session.Retry)
	})

	if deps.Locations != nil {
		v1.Post("/location", func(c *fiber.Ctx) error {
			var req locationRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			deps.Locations.Publish(weather.Coordinate{Lat: *req.Lat, Lon: *req.Lon})
			return c.SendStatus(fiber.StatusAccepted)
		})

		v1.Post("/location/permission", func(c *fiber.Ctx) error {
			var req permissionRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			deps.Locations.SetEnabled(*req.Granted)
			return c.JSON(fiber.Map{"granted": deps.Locations.Enabled()})
		})
	}

	if deps.Network != nil {
		v1.Post("/network", func(c *fiber.Ctx) error {
			var req networkRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			st, err := network.ParseStatus(req.Status)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			deps.Network.Publish(st)
			return c.SendStatus(fiber.StatusAccepted)
		})
	}
}

type refreshRequest struct {
	Force bool `json:"force"`
}

// locationRequest uses pointers so a missing field is distinguishable from 0.
type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type permissionRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

type networkRequest struct {
	Status string `json:"status" validate:"required"`
}

// accepted delivers a session command and answers 202.
func accepted(c *fiber.Ctx, send func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), commandTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		if errors.Is(err, session.ErrStopped) || errors.Is(err, context.DeadlineExceeded) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "session is not running")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusAccepted)
}
