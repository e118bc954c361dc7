package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	httpapi "github.com/i474232898/owm-poller/internal/api/http"
	"github.com/i474232898/owm-poller/internal/config"
	"github.com/i474232898/owm-poller/internal/scheduler"
	"github.com/i474232898/owm-poller/internal/store"
	"github.com/i474232898/owm-poller/pkg/owm"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cfg.Endpoint {
	case owm.EndpointForecast:
		err = run[owm.Forecast](ctx, cfg)
	default:
		err = run[owm.CurrentWeather](ctx, cfg)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func run[T owm.Shape](ctx context.Context, cfg *config.AppConfig) error {
	opts := []owm.Option{
		owm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		owm.WithEndpoint(cfg.Endpoint),
		owm.WithForecastDays(cfg.ForecastDays),
		owm.WithBuffer(cfg.BufferSize),
		owm.WithMinInterval(cfg.MinInterval),
		owm.WithMetrics(owm.NewMetrics(prometheus.DefaultRegisterer)),
	}
	if cfg.CircuitBreaker {
		opts = append(opts, owm.WithCircuitBreaker(gobreaker.Settings{
			MaxRequests: 1,
			Interval:    1 * time.Hour,
			Timeout:     cfg.PollInterval,
		}))
	}

	poller, err := owm.Start(ctx, cfg.Query(), cfg.PollInterval, opts...)
	if err != nil {
		return err
	}
	defer poller.Stop()

	// Consumer side: drain updates into the latest-value store on its own cadence.
	latest := store.NewLatest[T]()
	sched := scheduler.New(poller.Updates(), cfg.ReadInterval, latest)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "owm-poller",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "owm-poller",
			"poller":   poller.ID(),
			"endpoint": poller.Endpoint().String(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, latest)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Block until a termination signal arrives or the poller exits.
	select {
	case <-ctx.Done():
	case <-poller.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
