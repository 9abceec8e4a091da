package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/open-teleop/dashboard/domain/diagnostic"
	"github.com/open-teleop/dashboard/domain/mapview"
	"github.com/open-teleop/dashboard/domain/navigation"
	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/domain/teleop"
	"github.com/open-teleop/dashboard/pkg/api"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/zeromq"
	"github.com/open-teleop/dashboard/services"
)

func main() {
	configDir := os.Getenv("DASHBOARD_CONFIG_DIR")
	if configDir == "" {
		configDir = "./config"
	}

	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load bootstrap config: %v", err)
	}

	appLogger, err := customlog.NewLogrusLogger(customlog.Options{
		Level:      bootstrapCfg.Logging.Level,
		LogDir:     bootstrapCfg.Logging.LogPath,
		MaxSizeMB:  bootstrapCfg.Logging.MaxSizeMB,
		MaxBackups: bootstrapCfg.Logging.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger.Infof("Loaded bootstrap config from %s", configDir)

	// Goals
	goalsPath := filepath.Join(bootstrapCfg.Data.Directory, bootstrapCfg.Data.GoalsFilename)
	goalService, err := services.NewGoalConfigService(goalsPath, appLogger.WithField("component", "goals"))
	if err != nil {
		appLogger.Fatalf("Failed to initialize goal configuration: %v", err)
	}

	// Bridge session
	bridge := bootstrapCfg.Bridge
	topics := diagnostic.NewTopicRegistry(appLogger.WithField("component", "topics"))
	topics.LoadFromConfig(bridge)

	sessionLogger := appLogger.WithField("component", "session")
	controller := session.NewController(session.Options{
		Bridge:    bridge,
		Transport: session.NewRosbridgeTransport(sessionLogger, bridge.HandshakeTimeout()),
		Logger:    sessionLogger,
		Recorder:  topics,
	})

	teleopService := teleop.NewTeleopService(controller, appLogger.WithField("component", "teleop"))
	controller.SetCommandSource(teleopService)

	dispatcher := navigation.NewDispatcher(controller, goalService, bridge.GoalTopic, appLogger.WithField("component", "navigation"))

	mapRelay := mapview.NewMapRelay(bridge.MapTopic, topics, appLogger.WithField("component", "map"))
	controller.AddVisualizer(mapRelay)

	hub := api.NewStateHub(appLogger)
	controller.AddObserver(hub)

	var telemetryPublisher *zeromq.TelemetryPublisher
	if bootstrapCfg.Telemetry.ZeroMQ.Enabled {
		telemetryPublisher, err = zeromq.NewTelemetryPublisher(bootstrapCfg.Telemetry.ZeroMQ, appLogger.WithField("component", "zeromq"))
		if err != nil {
			appLogger.Fatalf("Failed to start ZeroMQ telemetry: %v", err)
		}
		telemetryPublisher.Start()
		controller.AddObserver(telemetryPublisher)
		goalService.SetPublisher(telemetryPublisher)
	}

	diagnosticService := diagnostic.NewDiagnosticService(topics, controller)

	app := fiber.New(fiber.Config{
		AppName:      "Open-Teleop Dashboard",
		ErrorHandler: api.ErrorHandler,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "open-teleop dashboard",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api.RegisterDashboardRoutes(app, api.NewDashboardHandler(controller, teleopService, dispatcher, mapRelay, appLogger))
	api.RegisterConfigRoutes(app, goalService, appLogger)
	api.RegisterWebSocketRoutes(app, hub, teleopService, appLogger)
	app.Get("/api/v1/diagnostics", diagnosticService.GetDiagnosticsHandler)

	if bridge.DefaultAddress != "" {
		appLogger.Infof("Default rosbridge address: %s", bridge.DefaultAddress)
	}

	listenAddr := fmt.Sprintf(":%d", bootstrapCfg.Server.HTTPPort)
	go func() {
		appLogger.Infof("Server starting on %s", listenAddr)
		if err := app.Listen(listenAddr); err != nil {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("Shutting down dashboard...")

	controller.Shutdown()
	mapRelay.Close()
	if telemetryPublisher != nil {
		telemetryPublisher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}

	appLogger.Infof("Dashboard exited properly")
}
