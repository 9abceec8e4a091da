package rosmsg

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedOdometry reports an odometry message without a usable pose.
var ErrMalformedOdometry = errors.New("malformed odometry message")

// Odometry is the subset of nav_msgs/Odometry the dashboard reads.
// Pointers distinguish an absent field from a zero value.
type Odometry struct {
	Pose *struct {
		Pose *struct {
			Position    *Point      `json:"position"`
			Orientation *Quaternion `json:"orientation"`
		} `json:"pose"`
	} `json:"pose"`
}

// DecodeOdometry extracts position and orientation from a raw odometry
// payload. Any missing level of pose.pose.{position,orientation} is an error.
func DecodeOdometry(raw []byte) (Point, Quaternion, error) {
	var odom Odometry
	if err := json.Unmarshal(raw, &odom); err != nil {
		return Point{}, Quaternion{}, fmt.Errorf("%w: %v", ErrMalformedOdometry, err)
	}
	if odom.Pose == nil || odom.Pose.Pose == nil {
		return Point{}, Quaternion{}, fmt.Errorf("%w: missing pose.pose", ErrMalformedOdometry)
	}
	p := odom.Pose.Pose
	if p.Position == nil {
		return Point{}, Quaternion{}, fmt.Errorf("%w: missing pose.pose.position", ErrMalformedOdometry)
	}
	if p.Orientation == nil {
		return Point{}, Quaternion{}, fmt.Errorf("%w: missing pose.pose.orientation", ErrMalformedOdometry)
	}
	return *p.Position, *p.Orientation, nil
}

// OccupancyGridInfo is the map metadata carried by nav_msgs/OccupancyGrid.
type OccupancyGridInfo struct {
	Resolution float64 `json:"resolution"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Origin     Pose    `json:"origin"`
}

// OccupancyGrid is decoded without the cell data; the dashboard only relays
// the grid geometry.
type OccupancyGrid struct {
	Header Header            `json:"header"`
	Info   OccupancyGridInfo `json:"info"`
}
