package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-client/internal/api/http"
	"github.com/i474232898/weather-client/internal/availability"
	"github.com/i474232898/weather-client/internal/location"
	"github.com/i474232898/weather-client/internal/logging"
	"github.com/i474232898/weather-client/internal/network"
	"github.com/i474232898/weather-client/internal/scheduler"
	"github.com/i474232898/weather-client/internal/session"
	"github.com/i474232898/weather-client/internal/weather"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a forecast session and expose it over HTTP",
		Run:   runServe,
	}
	cmd.Flags().String("network-source", "probe", "Connectivity source: probe (dial the API host) or feed (POST /api/v1/network)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	if err := serve(cmd); err != nil {
		exitErr("serve", err)
	}
}

// serve owns every opened resource; it returns instead of exiting so the
// deferred closers always run.
func serve(cmd *cobra.Command) error {
	netSource, _ := cmd.Flags().GetString("network-source")
	if netSource != "probe" && netSource != "feed" {
		return fmt.Errorf("unknown network source %q", netSource)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lg := logging.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	comps, err := buildComponents(cfg, lg, reg)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}
	defer func() {
		if err := comps.Close(); err != nil {
			lg.Warn("closing stores failed", "error", err)
		}
	}()

	// Push sources.
	var (
		locFeed *location.Feed
		locSrc  availability.Source[weather.Coordinate]
	)
	if cfg.Location.FixFile != "" {
		locSrc = location.NewFileSource(cfg.Location.FixFile, lg)
	} else {
		locFeed = location.NewFeed()
		locSrc = locFeed
	}

	var (
		netFeed *network.Feed
		netSrc  availability.Source[network.Status]
	)
	if netSource == "feed" {
		netFeed = network.NewFeed()
		netSrc = netFeed
	} else {
		netSrc = network.NewProber(cfg.Network.ProbeAddr, cfg.Network.ProbeInterval, lg)
	}

	locDetector := location.NewDetector(locSrc, location.Config{
		Timeout:       cfg.Location.Timeout,
		InitialGrace:  cfg.Location.InitialGrace,
		PollInterval:  cfg.Location.PollInterval,
		RetryInterval: cfg.Location.RetryInterval,
		Logger:        lg,
		Metrics:       comps.metrics,
	})
	netDetector := network.NewDetector(netSrc, lg, comps.metrics)

	orch := session.New(session.Deps{
		Cycler:    comps.service,
		Locations: comps.locations,
		Logger:    lg,
		Metrics:   comps.metrics,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(orch, cfg.RefreshInterval, lg)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		orch.Run(ctx, locDetector.Observe(ctx), netDetector.Observe(ctx))
	}()

	app := fiber.New(fiber.Config{
		AppName:               "weather-client",
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
			"status":  "ok",
			"service": "weather-client",
			"session": orch.ID(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Session:   orch,
		Locations: locFeed,
		Network:   netFeed,
		Units:     cfg.Forecast.Units,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	lg.Info("listening", "port", cfg.Port, "provider", cfg.Provider.Name, "session", orch.ID())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	<-sessionDone
	return nil
}
