// Package rosmsg holds the JSON shapes of the ROS messages the dashboard
// exchanges with rosbridge. Field names match the ROS definitions so the
// encoded form is the wire contract.
package rosmsg

// Vector3 defines a standard 3D vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist represents a command velocity message, matching geometry_msgs/Twist.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// NewTwist builds the planar command the dashboard sends: forward speed on
// linear.x and turn rate on angular.z.
func NewTwist(linear, angular float64) Twist {
	return Twist{
		Linear:  Vector3{X: linear},
		Angular: Vector3{Z: angular},
	}
}

// Point matches geometry_msgs/Point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion matches geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose matches geometry_msgs/Pose.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Time matches builtin_interfaces/Time.
type Time struct {
	Sec int64 `json:"sec"`
}

// Header matches std_msgs/Header as far as the goal publisher fills it.
type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// PoseStamped matches geometry_msgs/PoseStamped.
type PoseStamped struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}
