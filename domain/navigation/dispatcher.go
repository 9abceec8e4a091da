// Package navigation sends named poses to the robot's navigation stack.
package navigation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/rosmsg"
)

// ErrUnknownGoal is returned for a goal name that is not configured.
var ErrUnknownGoal = errors.New("unknown goal")

// Goal is a named target pose.
type Goal struct {
	Name        string            `json:"name"`
	Label       string            `json:"label,omitempty"`
	Position    rosmsg.Point      `json:"position"`
	Orientation rosmsg.Quaternion `json:"orientation"`
}

// GoalPublisher sends a one-shot message over the bridge.
type GoalPublisher interface {
	Publish(topic, msgType string, msg interface{}) error
}

// GoalProvider supplies the current goal configuration. A nil result means
// the built-in goals apply.
type GoalProvider interface {
	GetCurrentConfig() *config.GoalsConfig
}

// Dispatcher publishes goals. It keeps no state between calls and expects no
// acknowledgement.
type Dispatcher struct {
	publisher GoalPublisher
	goals     GoalProvider
	topic     config.TopicConfig
	logger    customlog.Logger
}

// NewDispatcher creates a dispatcher publishing on topic. goals may be nil.
func NewDispatcher(publisher GoalPublisher, goals GoalProvider, topic config.TopicConfig, logger customlog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		goals:     goals,
		topic:     topic,
		logger:    logger,
	}
}

// PublishNamedGoal publishes a PoseStamped in the map frame with a zero
// stamp, so the navigation stack uses the latest transform.
func (d *Dispatcher) PublishNamedGoal(name string, x, y, z, orientationZ, orientationW float64) error {
	msg := rosmsg.PoseStamped{
		Header: rosmsg.Header{
			Stamp:   rosmsg.Time{Sec: 0},
			FrameID: d.frameID(),
		},
		Pose: rosmsg.Pose{
			Position:    rosmsg.Point{X: x, Y: y, Z: z},
			Orientation: rosmsg.Quaternion{Z: orientationZ, W: orientationW},
		},
	}
	if err := d.publisher.Publish(d.topic.Name, d.topic.MessageType, msg); err != nil {
		return fmt.Errorf("failed to publish goal '%s': %w", name, err)
	}
	d.logger.Infof("Published %s goal to %s", name, d.topic.Name)
	return nil
}

// SendGoal publishes the configured goal called name.
func (d *Dispatcher) SendGoal(name string) error {
	goal, ok := d.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGoal, name)
	}
	return d.PublishNamedGoal(goal.Name, goal.Position.X, goal.Position.Y, goal.Position.Z,
		goal.Orientation.Z, goal.Orientation.W)
}

// Goals lists the configured goals in file order.
func (d *Dispatcher) Goals() []Goal {
	cfg := d.config()
	goals := make([]Goal, 0, len(cfg.Goals))
	for _, entry := range cfg.Goals {
		goals = append(goals, GoalFromEntry(entry))
	}
	return goals
}

// Lookup finds a configured goal by name.
func (d *Dispatcher) Lookup(name string) (Goal, bool) {
	entry, ok := d.config().GetGoal(name)
	if !ok {
		return Goal{}, false
	}
	return GoalFromEntry(entry), true
}

func (d *Dispatcher) config() *config.GoalsConfig {
	if d.goals != nil {
		if cfg := d.goals.GetCurrentConfig(); cfg != nil {
			return cfg
		}
	}
	return config.DefaultGoalsConfig()
}

func (d *Dispatcher) frameID() string {
	if id := d.config().FrameID; id != "" {
		return id
	}
	return "map"
}

// GoalFromEntry resolves a configured goal's heading. An explicit
// orientation is passed through as is; a yaw becomes the unit quaternion
// rotating about z.
func GoalFromEntry(entry config.GoalEntry) Goal {
	goal := Goal{
		Name:     entry.Name,
		Label:    entry.Label,
		Position: rosmsg.Point{X: entry.Position.X, Y: entry.Position.Y, Z: entry.Position.Z},
	}
	switch {
	case entry.Orientation != nil:
		goal.Orientation = rosmsg.Quaternion{Z: entry.Orientation.Z, W: entry.Orientation.W}
	case entry.Yaw != nil:
		goal.Orientation = YawToQuaternion(*entry.Yaw)
	default:
		goal.Orientation = rosmsg.Quaternion{W: 1}
	}
	return goal
}

// YawToQuaternion returns the rotation by yaw radians about the vertical axis.
func YawToQuaternion(yaw float64) rosmsg.Quaternion {
	q := quat.Exp(quat.Number{Kmag: yaw / 2})
	return rosmsg.Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}
