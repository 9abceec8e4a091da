package telemetry

import "math"

// Pose2D is the robot pose as the dashboard tracks it. Yaw is in radians.
type Pose2D struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

// KinematicSample is a pose stamped with wall-clock seconds.
type KinematicSample struct {
	Pose      Pose2D
	Timestamp float64
}

// VelocityEstimate is the finite-difference velocity between two samples.
type VelocityEstimate struct {
	LinearX  float64 `json:"linear_x"`
	LinearY  float64 `json:"linear_y"`
	AngularZ float64 `json:"angular_z"`
}

// VelocityEstimator turns successive pose samples into velocity estimates.
// It keeps only the previous sample. It is not safe for concurrent use; the
// owner serializes calls.
type VelocityEstimator struct {
	previous KinematicSample
	primed   bool
}

// NewVelocityEstimator returns an estimator waiting for its first sample.
func NewVelocityEstimator() *VelocityEstimator {
	return &VelocityEstimator{}
}

// Observe records a pose taken at now (seconds) and returns the velocity
// since the previous sample.
//
// The first sample after construction or Reset only primes the estimator and
// yields no estimate. A sample that is not strictly newer than the previous
// one is dropped and leaves the previous sample as it was.
func (e *VelocityEstimator) Observe(pose Pose2D, now float64) (VelocityEstimate, bool) {
	current := KinematicSample{Pose: pose, Timestamp: now}

	if !e.primed {
		e.previous = current
		e.primed = true
		return VelocityEstimate{}, false
	}

	dt := now - e.previous.Timestamp
	if dt <= 0 {
		return VelocityEstimate{}, false
	}

	dyaw := pose.Yaw - e.previous.Pose.Yaw
	// A single correction is enough while yaw stays inside (-π, π].
	if dyaw > math.Pi {
		dyaw -= 2 * math.Pi
	} else if dyaw < -math.Pi {
		dyaw += 2 * math.Pi
	}

	estimate := VelocityEstimate{
		LinearX:  (pose.X - e.previous.Pose.X) / dt,
		LinearY:  (pose.Y - e.previous.Pose.Y) / dt,
		AngularZ: dyaw / dt,
	}
	e.previous = current
	return estimate, true
}

// Reset forgets the previous sample so the next Observe primes again.
func (e *VelocityEstimator) Reset() {
	e.previous = KinematicSample{}
	e.primed = false
}

// Previous returns the last accepted sample and whether there is one.
func (e *VelocityEstimator) Previous() (KinematicSample, bool) {
	return e.previous, e.primed
}
