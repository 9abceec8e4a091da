package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/rosbridge"
)

// Hooks are the callbacks the registry wires into the channels it opens.
type Hooks struct {
	OnOdometry     func(json.RawMessage)
	OnPublishTick  func()
	OnLivenessTick func()
}

// ChannelRegistry holds the per-connection channel set: the command
// publisher, the odometry subscription, the command publish timer and the
// liveness poll timer. At most one of each exists at a time.
//
// ChannelRegistry is not safe for concurrent use; the Controller serializes
// access.
type ChannelRegistry struct {
	bridge   config.BridgeConfig
	schedule Scheduler
	logger   customlog.Logger

	open          bool
	publisher     Publisher
	odometry      Subscription
	publishTimer  PeriodicTask
	livenessTimer PeriodicTask
}

// NewChannelRegistry creates an empty registry. A nil schedule uses Every.
func NewChannelRegistry(bridge config.BridgeConfig, schedule Scheduler, logger customlog.Logger) *ChannelRegistry {
	if schedule == nil {
		schedule = Every
	}
	return &ChannelRegistry{
		bridge:   bridge,
		schedule: schedule,
		logger:   logger,
	}
}

// OpenAll creates the channel set on s. It does nothing if the set is
// already open. On failure the channels created so far are released and the
// registry stays closed.
func (r *ChannelRegistry) OpenAll(s Session, hooks Hooks) error {
	if r.open {
		r.logger.Debugf("Channel set already open, ignoring")
		return nil
	}

	cmd := r.bridge.CommandTopic
	pub, err := s.Advertise(cmd.Name, cmd.MessageType)
	if err != nil {
		return fmt.Errorf("failed to advertise %s: %w", cmd.Name, err)
	}

	odom := r.bridge.OdometryTopic
	sub, err := s.Subscribe(odom.Name, odom.MessageType, hooks.OnOdometry)
	if err != nil {
		if uerr := pub.Unadvertise(); uerr != nil && !errors.Is(uerr, rosbridge.ErrClosed) {
			r.logger.Warnf("Failed to unadvertise %s after subscribe failure: %v", cmd.Name, uerr)
		}
		return fmt.Errorf("failed to subscribe %s: %w", odom.Name, err)
	}

	r.publisher = pub
	r.odometry = sub
	r.publishTimer = r.schedule(r.bridge.PublishInterval(), hooks.OnPublishTick)
	r.livenessTimer = r.schedule(r.bridge.LivenessInterval(), hooks.OnLivenessTick)
	r.open = true

	r.logger.Infof("Opened channels: publishing %s every %v, subscribed %s, polling %s every %v",
		cmd.Name, r.bridge.PublishInterval(), odom.Name,
		r.bridge.LivenessService.Name, r.bridge.LivenessInterval())
	return nil
}

// CloseAll releases every channel exactly once. It is safe to call when
// nothing is open. Release errors on an already closed session are expected
// and ignored.
func (r *ChannelRegistry) CloseAll() {
	if r.publishTimer != nil {
		r.publishTimer.Stop()
		r.publishTimer = nil
	}
	if r.livenessTimer != nil {
		r.livenessTimer.Stop()
		r.livenessTimer = nil
	}
	if r.odometry != nil {
		if err := r.odometry.Unsubscribe(); err != nil && !errors.Is(err, rosbridge.ErrClosed) {
			r.logger.Warnf("Failed to unsubscribe %s: %v", r.bridge.OdometryTopic.Name, err)
		}
		r.odometry = nil
	}
	if r.publisher != nil {
		if err := r.publisher.Unadvertise(); err != nil && !errors.Is(err, rosbridge.ErrClosed) {
			r.logger.Warnf("Failed to unadvertise %s: %v", r.bridge.CommandTopic.Name, err)
		}
		r.publisher = nil
	}
	if r.open {
		r.logger.Infof("Closed channels")
	}
	r.open = false
}

// IsOpen reports whether a channel set is live.
func (r *ChannelRegistry) IsOpen() bool {
	return r.open
}

// Publisher returns the command publisher, or nil when closed.
func (r *ChannelRegistry) Publisher() Publisher {
	return r.publisher
}
