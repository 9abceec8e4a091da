// Package telemetrycodec encodes session snapshots as TelemetryFrame
// flatbuffers for external consumers.
package telemetrycodec

import (
	"errors"
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/domain/telemetry"
	fbtelemetry "github.com/open-teleop/dashboard/pkg/flatbuffers/teleop/telemetry"
)

// ErrShortFrame is returned for a buffer too small to hold a frame.
var ErrShortFrame = errors.New("telemetry frame too short")

// Encode serializes s, stamped with at, into a finished flatbuffer.
func Encode(s session.State, at time.Time) []byte {
	builder := flatbuffers.NewBuilder(256)

	sessionID := builder.CreateString(s.SessionID)
	address := builder.CreateString(s.Address)
	lastError := builder.CreateString(s.LastError)

	fbtelemetry.TelemetryFrameStart(builder)
	fbtelemetry.TelemetryFrameAddSessionId(builder, sessionID)
	fbtelemetry.TelemetryFrameAddAddress(builder, address)
	fbtelemetry.TelemetryFrameAddConnection(builder, toWire(s.Connection))
	fbtelemetry.TelemetryFrameAddLoading(builder, s.Loading)
	fbtelemetry.TelemetryFrameAddX(builder, s.Pose.X)
	fbtelemetry.TelemetryFrameAddY(builder, s.Pose.Y)
	fbtelemetry.TelemetryFrameAddZ(builder, s.Pose.Z)
	fbtelemetry.TelemetryFrameAddYaw(builder, s.Pose.Yaw)
	fbtelemetry.TelemetryFrameAddHasVelocity(builder, s.HasVelocity)
	fbtelemetry.TelemetryFrameAddLinearX(builder, s.Velocity.LinearX)
	fbtelemetry.TelemetryFrameAddLinearY(builder, s.Velocity.LinearY)
	fbtelemetry.TelemetryFrameAddAngularZ(builder, s.Velocity.AngularZ)
	fbtelemetry.TelemetryFrameAddTimestampNs(builder, at.UnixNano())
	fbtelemetry.TelemetryFrameAddLastError(builder, lastError)
	frame := fbtelemetry.TelemetryFrameEnd(builder)

	fbtelemetry.FinishTelemetryFrameBuffer(builder, frame)
	return builder.FinishedBytes()
}

// Decode reads a frame produced by Encode back into a snapshot and its
// timestamp. Fields that are not carried on the wire are left zero.
func Decode(buf []byte) (session.State, time.Time, error) {
	if len(buf) < flatbuffers.SizeUOffsetT {
		return session.State{}, time.Time{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))
	}
	f := fbtelemetry.GetRootAsTelemetryFrame(buf, 0)

	s := session.State{
		SessionID:  string(f.SessionId()),
		Address:    string(f.Address()),
		Connection: fromWire(f.Connection()),
		Loading:    f.Loading(),
		Pose: telemetry.Pose2D{
			X:   f.X(),
			Y:   f.Y(),
			Z:   f.Z(),
			Yaw: f.Yaw(),
		},
		HasVelocity: f.HasVelocity(),
		Velocity: telemetry.VelocityEstimate{
			LinearX:  f.LinearX(),
			LinearY:  f.LinearY(),
			AngularZ: f.AngularZ(),
		},
		LastError: string(f.LastError()),
	}
	return s, time.Unix(0, f.TimestampNs()), nil
}

func toWire(c session.ConnectionState) fbtelemetry.ConnectionState {
	switch c {
	case session.Connecting:
		return fbtelemetry.ConnectionStateConnecting
	case session.Connected:
		return fbtelemetry.ConnectionStateConnected
	default:
		return fbtelemetry.ConnectionStateDisconnected
	}
}

func fromWire(c fbtelemetry.ConnectionState) session.ConnectionState {
	switch c {
	case fbtelemetry.ConnectionStateConnecting:
		return session.Connecting
	case fbtelemetry.ConnectionStateConnected:
		return session.Connected
	default:
		return session.Disconnected
	}
}
