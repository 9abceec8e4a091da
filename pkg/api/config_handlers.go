package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.GoalConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.GoalConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("GoalConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.GoalConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/goals", h.handleGetGoalsConfig)
	apiGroup.Put("/goals", h.handleUpdateGoalsConfig)

	logger.Infof("Registered goals configuration API endpoints under /api/v1/config")
}

// handleGetGoalsConfig returns the goals file as YAML.
func (h *ConfigHandler) handleGetGoalsConfig(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get goals YAML: %v", err)
		return fiber.NewError(http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve configuration: %v", err))
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateGoalsConfig replaces the goals file with the YAML body.
func (h *ConfigHandler) handleUpdateGoalsConfig(c *fiber.Ctx) error {
	switch ct := c.Get(fiber.HeaderContentType); ct {
	case "application/x-yaml", "application/yaml", "text/yaml":
	default:
		h.logger.Warnf("Goals update with Content-Type %q, parsing as YAML anyway", ct)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return fiber.NewError(http.StatusBadRequest, "Request body cannot be empty.")
	}

	if err := h.configService.UpdateConfig(newConfigYAML); err != nil {
		h.logger.Errorf("Failed to update goals configuration: %v", err)
		if isValidationError(err) {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("Configuration update failed: %v", err))
		}
		return fiber.NewError(http.StatusInternalServerError, fmt.Sprintf("Internal server error during configuration update: %v", err))
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Goals configuration updated successfully.",
	})
}

func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "validation failed") || strings.Contains(msg, "error parsing goals file")
}
