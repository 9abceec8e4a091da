// Package telemetry derives planar kinematic state from odometry samples.
package telemetry

import "math"

// YawFromQuaternion returns the rotation about the vertical axis encoded by
// the quaternion (x, y, z, w), in radians within (-π, π].
func YawFromQuaternion(x, y, z, w float64) float64 {
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}
