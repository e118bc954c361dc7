package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/owm-poller/internal/store"
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes[T any](app *fiber.App, latest *store.Latest[T]) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		w, err := latest.Get()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				msg := "no weather data yet"
				if snap := latest.Snapshot(); snap.LastError != "" {
					msg = msg + ": " + snap.LastError
				}
				return fiber.NewError(fiber.StatusServiceUnavailable, msg)
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather data")
		}

		return c.JSON(w)
	})

	v1.Get("/weather/status", func(c *fiber.Ctx) error {
		return c.JSON(latest.Snapshot())
	})
}
