package diagnostic

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/dashboard/domain/session"
)

// SessionReport summarizes the bridge session.
type SessionReport struct {
	Connection string `json:"connection"`
	Address    string `json:"address,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Uptime     string `json:"uptime,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// Report is the diagnostics payload served to the UI.
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Session   SessionReport `json:"session"`
	Topics    []TopicStats  `json:"topics"`
}

// StateSource provides the current session snapshot.
type StateSource interface {
	State() session.State
}

// DiagnosticService reports bridge session health and topic traffic
type DiagnosticService struct {
	registry *TopicRegistry
	sessions StateSource
	clock    func() time.Time
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(registry *TopicRegistry, sessions StateSource) *DiagnosticService {
	return &DiagnosticService{
		registry: registry,
		sessions: sessions,
		clock:    time.Now,
	}
}

// GetReport assembles the current diagnostics.
func (s *DiagnosticService) GetReport() Report {
	now := s.clock()
	st := s.sessions.State()

	sr := SessionReport{
		Connection: st.Connection.String(),
		Address:    st.Address,
		SessionID:  st.SessionID,
		LastError:  st.LastError,
	}
	if st.Connection == session.Connected && !st.ConnectedAt.IsZero() {
		sr.Uptime = strings.TrimSpace(humanize.RelTime(st.ConnectedAt, now, "", ""))
	}

	return Report{
		Timestamp: now,
		Session:   sr,
		Topics:    s.registry.GetTopicStats(),
	}
}

// GetDiagnosticsHandler handles API requests for bridge diagnostics
func (s *DiagnosticService) GetDiagnosticsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "success",
		"diagnostics": s.GetReport(),
	})
}
