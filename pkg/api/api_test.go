package api

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/dashboard/domain/mapview"
	"github.com/open-teleop/dashboard/domain/navigation"
	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/domain/teleop"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/services"
)

type fakeSessions struct {
	mu         sync.Mutex
	state      session.State
	connectErr error
	connected  []string
}

func (f *fakeSessions) Connect(address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = append(f.connected, address)
	f.state = session.State{Address: address, Connection: session.Connecting, Loading: true}
	return nil
}

func (f *fakeSessions) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.Connection != session.Connected {
		return session.ErrNotConnected
	}
	return nil
}

func (f *fakeSessions) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeBridge struct {
	mu        sync.Mutex
	velocity  [][2]float64
	published []string
	err       error
}

func (b *fakeBridge) SendVelocity(linear, angular float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.velocity = append(b.velocity, [2]float64{linear, angular})
	return nil
}

func (b *fakeBridge) Publish(topic, msgType string, msg interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, topic)
	return nil
}

type fakeMap struct{ snap mapview.Snapshot }

func (f fakeMap) Snapshot() mapview.Snapshot { return f.snap }

type testServer struct {
	app      *fiber.App
	sessions *fakeSessions
	bridge   *fakeBridge
	teleop   *teleop.TeleopService
	hub      *StateHub
	goalsDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := customlog.NewNopLogger()
	ts := &testServer{
		sessions: &fakeSessions{},
		bridge:   &fakeBridge{},
		hub:      NewStateHub(logger),
		goalsDir: t.TempDir(),
	}
	ts.teleop = teleop.NewTeleopService(ts.bridge, logger)

	goalSvc, err := services.NewGoalConfigService(filepath.Join(ts.goalsDir, "goals.yaml"), logger)
	require.NoError(t, err)
	dispatcher := navigation.NewDispatcher(ts.bridge, goalSvc, config.DefaultBridgeConfig().GoalTopic, logger)

	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterDashboardRoutes(ts.app, NewDashboardHandler(ts.sessions, ts.teleop, dispatcher,
		fakeMap{mapview.Snapshot{Available: true, Width: 10, Height: 20}}, logger))
	RegisterConfigRoutes(ts.app, goalSvc, logger)
	RegisterWebSocketRoutes(ts.app, ts.hub, ts.teleop, logger)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, contentType, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := ts.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestConnectAndState(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, "POST", "/api/v1/session/connect", fiber.MIMEApplicationJSON, `{"address":"ws://robot:9090"}`)
	assert.Equal(t, fiber.StatusAccepted, code)
	assert.Contains(t, body, `"connection":"connecting"`)
	assert.Equal(t, []string{"ws://robot:9090"}, ts.sessions.connected)

	code, body = ts.do(t, "GET", "/api/v1/session/state", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	var st map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &st))
	assert.Equal(t, "connecting", st["connection"])
	assert.Equal(t, true, st["loading"])

	// no body selects the default address
	ts.sessions.state = session.State{}
	code, _ = ts.do(t, "POST", "/api/v1/session/connect", "", "")
	assert.Equal(t, fiber.StatusAccepted, code)
	assert.Equal(t, "", ts.sessions.connected[1])
}

func TestConnectConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.sessions.connectErr = session.ErrAlreadyConnected

	code, body := ts.do(t, "POST", "/api/v1/session/connect", fiber.MIMEApplicationJSON, `{}`)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.JSONEq(t, `{"error":"session is already connecting or connected"}`, body)
}

func TestDisconnectWhenIdle(t *testing.T) {
	ts := newTestServer(t)
	code, body := ts.do(t, "POST", "/api/v1/session/disconnect", "", "")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Contains(t, body, "not connected")
}

func TestJoystickRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, "PUT", "/api/v1/teleop/joystick", fiber.MIMEApplicationJSON, `{"vertical":0.4,"horizontal":-0.2}`)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, teleop.JoystickCommand{Vertical: 0.4, Horizontal: -0.2}, ts.teleop.Joystick())

	code, _ = ts.do(t, "DELETE", "/api/v1/teleop/joystick", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, teleop.JoystickCommand{}, ts.teleop.Joystick())

	code, _ = ts.do(t, "PUT", "/api/v1/teleop/joystick", fiber.MIMEApplicationJSON, `{"vertical":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestPresetRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, "POST", "/api/v1/teleop/presets/turn_right", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, [][2]float64{{0.2, -0.5}}, ts.bridge.velocity)

	code, _ = ts.do(t, "POST", "/api/v1/teleop/presets/moonwalk", "", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body := ts.do(t, "GET", "/api/v1/teleop/presets", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"turn_right"`)
}

func TestGoalRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, "GET", "/api/v1/navigation/goals", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"sofa"`)
	assert.Contains(t, body, `"living_room"`)

	code, _ = ts.do(t, "POST", "/api/v1/navigation/goals/kitchen", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []string{"/goal_pose"}, ts.bridge.published)

	code, _ = ts.do(t, "POST", "/api/v1/navigation/goals/attic", "", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	ts.bridge.err = session.ErrNotConnected
	code, _ = ts.do(t, "POST", "/api/v1/navigation/goals/sofa", "", "")
	assert.Equal(t, fiber.StatusConflict, code)

	ts.bridge.err = errors.New("socket closed")
	code, _ = ts.do(t, "POST", "/api/v1/navigation/goals/sofa", "", "")
	assert.Equal(t, fiber.StatusBadGateway, code)
}

func TestGoalsConfigRoutes(t *testing.T) {
	ts := newTestServer(t)

	code, body := ts.do(t, "GET", "/api/v1/config/goals", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "name: sofa")

	newGoals := "goals:\n  - name: dock\n    position: {x: 0, y: 0}\n    yaw: 0\n"
	code, _ = ts.do(t, "PUT", "/api/v1/config/goals", "application/x-yaml", newGoals)
	assert.Equal(t, fiber.StatusOK, code)

	code, body = ts.do(t, "GET", "/api/v1/navigation/goals", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"dock"`)
	assert.NotContains(t, body, `"sofa"`)

	code, _ = ts.do(t, "PUT", "/api/v1/config/goals", "application/x-yaml", "goals:\n  - name: x\n")
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = ts.do(t, "PUT", "/api/v1/config/goals", "application/x-yaml", "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestMapRoute(t *testing.T) {
	ts := newTestServer(t)
	code, body := ts.do(t, "GET", "/api/v1/map", "", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"available":true`)
	assert.Contains(t, body, `"height":20`)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)
	code, _ := ts.do(t, "GET", "/ws/state", "", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, code)
}

func TestStateHubKeepsLatest(t *testing.T) {
	hub := NewStateHub(customlog.NewNopLogger())
	hub.OnState(session.State{Address: "first"})

	updates, cancel := hub.Subscribe()
	defer cancel()
	assert.Equal(t, "first", (<-updates).Address)

	for i := 0; i < stateClientBuffer*3; i++ {
		hub.OnState(session.State{Address: "burst"})
	}
	hub.OnState(session.State{Address: "last"})

	var got session.State
	for len(updates) > 0 {
		got = <-updates
	}
	assert.Equal(t, "last", got.Address)

	assert.Equal(t, 1, hub.ClientCount())
	cancel()
	cancel()
	assert.Equal(t, 0, hub.ClientCount())
}

func startListener(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func TestWebSockets(t *testing.T) {
	ts := newTestServer(t)
	base := startListener(t, ts.app)

	control, _, err := websocket.DefaultDialer.Dial(base+"/ws/control", nil)
	require.NoError(t, err)
	require.NoError(t, control.WriteMessage(websocket.TextMessage, []byte(`{"vertical":0.3,"horizontal":0.1}`)))
	require.Eventually(t, func() bool {
		return ts.teleop.Joystick() == teleop.JoystickCommand{Vertical: 0.3, Horizontal: 0.1}
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, control.WriteMessage(websocket.TextMessage, []byte(`{"type":"reset"}`)))
	require.Eventually(t, func() bool {
		return ts.teleop.Joystick() == teleop.JoystickCommand{}
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, control.WriteMessage(websocket.TextMessage, []byte(`{"vertical":1,"horizontal":0}`)))
	require.Eventually(t, func() bool {
		return ts.teleop.Joystick().Vertical == 1
	}, 2*time.Second, 5*time.Millisecond)
	control.Close()
	require.Eventually(t, func() bool {
		return ts.teleop.Joystick() == teleop.JoystickCommand{}
	}, 2*time.Second, 5*time.Millisecond, "closing the control socket recentres the joystick")

	ts.hub.OnState(session.State{Address: "ws://robot:9090", Connection: session.Connected})
	state, _, err := websocket.DefaultDialer.Dial(base+"/ws/state", nil)
	require.NoError(t, err)
	defer state.Close()
	require.NoError(t, state.SetReadDeadline(time.Now().Add(2*time.Second)))

	var snap map[string]interface{}
	require.NoError(t, state.ReadJSON(&snap))
	assert.Equal(t, "connected", snap["connection"])

	ts.hub.OnState(session.State{Connection: session.Disconnected, LastError: "closed"})
	require.NoError(t, state.ReadJSON(&snap))
	assert.Equal(t, "disconnected", snap["connection"])
	assert.Equal(t, "closed", snap["last_error"])
}
