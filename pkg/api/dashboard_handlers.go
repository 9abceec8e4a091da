package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/dashboard/domain/mapview"
	"github.com/open-teleop/dashboard/domain/navigation"
	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/domain/teleop"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// SessionController is the part of session.Controller the API drives.
type SessionController interface {
	Connect(address string) error
	Disconnect() error
	State() session.State
}

// MapSource provides the current map geometry.
type MapSource interface {
	Snapshot() mapview.Snapshot
}

// DashboardHandler serves the session, teleop, navigation and map endpoints.
type DashboardHandler struct {
	sessions   SessionController
	teleop     *teleop.TeleopService
	navigation *navigation.Dispatcher
	maps       MapSource
	logger     customlog.Logger
}

// NewDashboardHandler creates the handler.
func NewDashboardHandler(sessions SessionController, teleopService *teleop.TeleopService, dispatcher *navigation.Dispatcher, maps MapSource, logger customlog.Logger) *DashboardHandler {
	return &DashboardHandler{
		sessions:   sessions,
		teleop:     teleopService,
		navigation: dispatcher,
		maps:       maps,
		logger:     logger,
	}
}

// RegisterDashboardRoutes registers the dashboard API under /api/v1.
func RegisterDashboardRoutes(app *fiber.App, h *DashboardHandler) {
	v1 := app.Group("/api/v1")

	sessionGroup := v1.Group("/session")
	sessionGroup.Post("/connect", h.handleConnect)
	sessionGroup.Post("/disconnect", h.handleDisconnect)
	sessionGroup.Get("/state", h.handleGetState)

	teleopGroup := v1.Group("/teleop")
	teleopGroup.Put("/joystick", h.handleSetJoystick)
	teleopGroup.Delete("/joystick", h.handleResetJoystick)
	teleopGroup.Get("/presets", h.handleListPresets)
	teleopGroup.Post("/presets/:name", h.handleSendPreset)

	navGroup := v1.Group("/navigation")
	navGroup.Get("/goals", h.handleListGoals)
	navGroup.Post("/goals/:name", h.handleSendGoal)

	v1.Get("/map", h.handleGetMap)

	h.logger.Infof("Registered dashboard API endpoints under /api/v1")
}

func (h *DashboardHandler) handleConnect(c *fiber.Ctx) error {
	var req ConnectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	if err := h.sessions.Connect(req.Address); err != nil {
		if errors.Is(err, session.ErrAlreadyConnected) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status": "connecting",
		"state":  h.sessions.State(),
	})
}

func (h *DashboardHandler) handleDisconnect(c *fiber.Ctx) error {
	if err := h.sessions.Disconnect(); err != nil {
		if errors.Is(err, session.ErrNotConnected) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status": "disconnecting",
	})
}

func (h *DashboardHandler) handleGetState(c *fiber.Ctx) error {
	return c.JSON(h.sessions.State())
}

func (h *DashboardHandler) handleSetJoystick(c *fiber.Ctx) error {
	var cmd teleop.JoystickCommand
	if err := c.BodyParser(&cmd); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	h.teleop.SetJoystick(cmd)
	return c.JSON(cmd)
}

func (h *DashboardHandler) handleResetJoystick(c *fiber.Ctx) error {
	h.teleop.ResetJoystick()
	return c.JSON(h.teleop.Joystick())
}

func (h *DashboardHandler) handleListPresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"presets": teleop.Presets()})
}

func (h *DashboardHandler) handleSendPreset(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.teleop.SendPreset(name); err != nil {
		if errors.Is(err, teleop.ErrUnknownPreset) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"status": "sent", "preset": name})
}

func (h *DashboardHandler) handleListGoals(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"goals": h.navigation.Goals()})
}

func (h *DashboardHandler) handleSendGoal(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.navigation.SendGoal(name); err != nil {
		switch {
		case errors.Is(err, navigation.ErrUnknownGoal):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, session.ErrNotConnected):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
	}
	return c.JSON(fiber.Map{"status": "sent", "goal": name})
}

func (h *DashboardHandler) handleGetMap(c *fiber.Ctx) error {
	return c.JSON(h.maps.Snapshot())
}
