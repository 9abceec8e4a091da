package api

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/domain/teleop"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

const stateClientBuffer = 8

// StateHub fans session snapshots out to WebSocket clients. It is a
// session.Observer; slow clients lose intermediate snapshots but always
// receive the latest one.
type StateHub struct {
	logger customlog.Logger

	mu      sync.Mutex
	clients map[chan session.State]struct{}
	last    session.State
	hasLast bool
}

// NewStateHub creates an empty hub.
func NewStateHub(logger customlog.Logger) *StateHub {
	return &StateHub{
		logger:  logger,
		clients: make(map[chan session.State]struct{}),
	}
}

// OnState implements session.Observer.
func (h *StateHub) OnState(s session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = s
	h.hasLast = true
	for ch := range h.clients {
		offerLatest(ch, s)
	}
}

// offerLatest queues s, evicting the oldest pending snapshot if ch is full.
func offerLatest(ch chan session.State, s session.State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Subscribe registers a client. The latest snapshot, if any, is queued
// immediately. cancel must be called when the client goes away.
func (h *StateHub) Subscribe() (updates <-chan session.State, cancel func()) {
	ch := make(chan session.State, stateClientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.hasLast {
		ch <- h.last
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			h.mu.Unlock()
		})
	}
}

// ClientCount returns the number of subscribed clients.
func (h *StateHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// StateWebSocketHandler streams session snapshots as JSON text frames until
// the client disconnects.
func StateWebSocketHandler(conn *websocket.Conn, hub *StateHub, logger customlog.Logger) {
	logger.Infof("State WebSocket connected: %s", conn.RemoteAddr())
	updates, cancel := hub.Subscribe()
	defer cancel()

	// The read side only watches for the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			logger.Infof("State WebSocket disconnected: %s", conn.RemoteAddr())
			return
		case s := <-updates:
			if err := conn.WriteJSON(s); err != nil {
				logger.Debugf("State WS write failed: %v", err)
				return
			}
		}
	}
}

// ControlWebSocketHandler applies joystick frames from the UI. The joystick
// is recentred when the socket closes so a dropped client cannot leave the
// robot driving.
func ControlWebSocketHandler(conn *websocket.Conn, teleopService *teleop.TeleopService, logger customlog.Logger) {
	logger.Infof("Control WebSocket connected: %s", conn.RemoteAddr())
	defer teleopService.ResetJoystick()

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("Control WS read error: %v", err)
			} else {
				logger.Infof("Control WS connection closed: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			logger.Infof("Ignoring non-text Control WS message type: %d", mt)
			continue
		}

		var cm ControlMessage
		if err := json.Unmarshal(msg, &cm); err != nil {
			logger.Warnf("Failed to unmarshal joystick message from WS: %v. Message: %s", err, string(msg))
			continue
		}

		if cm.Type == ControlMessageReset {
			teleopService.ResetJoystick()
			continue
		}
		teleopService.SetJoystick(teleop.JoystickCommand{Vertical: cm.Vertical, Horizontal: cm.Horizontal})
	}
	logger.Infof("Control WebSocket disconnected: %s", conn.RemoteAddr())
}

// RegisterWebSocketRoutes mounts /ws/state and /ws/control.
func RegisterWebSocketRoutes(app *fiber.App, hub *StateHub, teleopService *teleop.TeleopService, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/state", websocket.New(func(conn *websocket.Conn) {
		StateWebSocketHandler(conn, hub, logger)
	}))
	app.Get("/ws/control", websocket.New(func(conn *websocket.Conn) {
		ControlWebSocketHandler(conn, teleopService, logger)
	}))

	logger.Infof("Registered WebSocket endpoints /ws/state and /ws/control")
}
