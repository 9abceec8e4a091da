package api

// --- Request and message bodies ---

// ConnectRequest is the body of POST /api/v1/session/connect. An empty
// address selects the configured default.
type ConnectRequest struct {
	Address string `json:"address"`
}

// ControlMessage is one frame on the control WebSocket: a joystick position,
// or a reset when Type is "reset".
type ControlMessage struct {
	Type       string  `json:"type,omitempty"`
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

// ControlMessageReset recentres the joystick.
const ControlMessageReset = "reset"
