// Package session owns the rosbridge connection lifecycle and the channels
// the dashboard multiplexes over it.
package session

import (
	"time"

	"github.com/open-teleop/dashboard/domain/telemetry"
)

// ConnectionState is the lifecycle phase of the bridge session.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON snapshots.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a read-only snapshot of everything the UI shows about the session.
type State struct {
	SessionID   string                     `json:"session_id,omitempty"`
	Address     string                     `json:"address,omitempty"`
	Connection  ConnectionState            `json:"connection"`
	Loading     bool                       `json:"loading"`
	Pose        telemetry.Pose2D           `json:"pose"`
	HasPose     bool                       `json:"has_pose"`
	Velocity    telemetry.VelocityEstimate `json:"velocity"`
	HasVelocity bool                       `json:"has_velocity"`
	LastError   string                     `json:"last_error,omitempty"`
	ConnectedAt time.Time                  `json:"connected_at"`
}

// Observer receives a snapshot after every state change. OnState is called
// with the controller locked, so implementations must return promptly and
// must not call back into the controller.
type Observer interface {
	OnState(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

func (f ObserverFunc) OnState(s State) { f(s) }

// Visualizer is a collaborator that renders from the live session, such as
// the map view. Attach is called once the session is connected and Detach
// once it has closed. Both run with the controller locked.
type Visualizer interface {
	Attach(s Session) error
	Detach()
}

// CommandSource supplies the velocity published on every command tick.
type CommandSource interface {
	Velocity() (linear, angular float64)
}

// TrafficRecorder counts bridge traffic for diagnostics.
type TrafficRecorder interface {
	RecordInbound(topic string, size int)
	RecordOutbound(topic string)
}
