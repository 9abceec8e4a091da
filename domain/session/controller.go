package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/open-teleop/dashboard/domain/telemetry"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/rosmsg"
)

// Common errors
var (
	ErrAlreadyConnected = errors.New("session is already connecting or connected")
	ErrNotConnected     = errors.New("session is not connected")
)

// Options configures a Controller. Transport and Logger are required.
type Options struct {
	Bridge    config.BridgeConfig
	Transport Transport
	Logger    customlog.Logger

	// Schedule defaults to Every.
	Schedule Scheduler
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Commands supplies the periodic command; nil publishes zero velocity.
	Commands CommandSource
	// Recorder, if set, counts bridge traffic.
	Recorder TrafficRecorder
}

// Controller owns the bridge session lifecycle:
//
//	Disconnected -> Connecting (Connect) -> Connected (transport open) -> Disconnected (transport closed)
//
// Transport events, timer ticks and public calls are serialized by one mutex.
// All teardown happens in the closed handler.
type Controller struct {
	bridge    config.BridgeConfig
	transport Transport
	logger    customlog.Logger
	clock     func() time.Time
	commands  CommandSource
	recorder  TrafficRecorder

	mu          sync.Mutex
	state       State
	session     Session
	generation  uint64
	registry    *ChannelRegistry
	estimator   *telemetry.VelocityEstimator
	observers   []Observer
	visualizers []Visualizer
}

// NewController creates a disconnected controller.
func NewController(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		bridge:    opts.Bridge,
		transport: opts.Transport,
		logger:    opts.Logger,
		clock:     clock,
		commands:  opts.Commands,
		recorder:  opts.Recorder,
		registry:  NewChannelRegistry(opts.Bridge, opts.Schedule, opts.Logger),
		estimator: telemetry.NewVelocityEstimator(),
	}
}

// AddObserver registers o for state snapshots. o receives the current state
// immediately.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
	o.OnState(c.state)
}

// AddVisualizer registers a collaborator that follows the session.
func (c *Controller) AddVisualizer(v Visualizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visualizers = append(c.visualizers, v)
	if c.state.Connection == Connected && c.session != nil {
		if err := v.Attach(c.session); err != nil {
			c.logger.Warnf("Failed to attach visualizer: %v", err)
		}
	}
}

// SetCommandSource replaces the source of the periodic command.
func (c *Controller) SetCommandSource(src CommandSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = src
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts connecting to address, or to the configured default when
// address is empty. It returns once the dial has been started; the outcome
// arrives through the state.
func (c *Controller) Connect(address string) error {
	if address == "" {
		address = c.bridge.DefaultAddress
	}
	if address == "" {
		return fmt.Errorf("no bridge address given and no default configured")
	}

	c.mu.Lock()
	if c.state.Connection != Disconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.generation++
	gen := c.generation
	c.state = State{
		SessionID:  uuid.NewString(),
		Address:    address,
		Connection: Connecting,
		Loading:    true,
	}
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Infof("Connecting to rosbridge at %s", address)
	go c.dial(gen, address)
	return nil
}

func (c *Controller) dial(gen uint64, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.bridge.HandshakeTimeout())
	defer cancel()

	s, err := c.transport.Dial(ctx, address, Events{
		OnError: func(err error) { c.handleError(gen, err) },
		OnClose: func() { c.handleClosed(gen) },
	})
	if err != nil {
		c.handleError(gen, err)
		c.handleClosed(gen)
		return
	}

	if !c.handleConnected(gen, s) {
		if err := s.Close(); err != nil {
			c.logger.Debugf("Closing rejected session: %v", err)
		}
	}
	s.Listen()
}

// handleConnected runs the connected event. It returns false when the session
// must be closed again, either because it belongs to a stale generation or
// because its channels could not be opened.
func (c *Controller) handleConnected(gen uint64, s Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state.Connection == Disconnected {
		c.logger.Warnf("Ignoring connected event from a stale session")
		return false
	}
	if c.state.Connection == Connected && c.session == s {
		c.logger.Debugf("Duplicate connected event for %s", s.Address())
		if err := c.registry.OpenAll(s, c.hooks(gen)); err != nil {
			c.reportErrorLocked(err)
		}
		return true
	}

	c.session = s
	c.state.Connection = Connected
	c.state.Loading = false
	c.state.ConnectedAt = c.clock()
	c.estimator.Reset()

	if err := c.registry.OpenAll(s, c.hooks(gen)); err != nil {
		c.reportErrorLocked(fmt.Errorf("connection error: %w", err))
		return false
	}

	for _, v := range c.visualizers {
		if err := v.Attach(s); err != nil {
			c.logger.Warnf("Failed to attach visualizer: %v", err)
		}
	}

	c.logger.Infof("Connected to rosbridge at %s", s.Address())
	c.notifyLocked()
	return true
}

// handleError records a transport error. The connection state is left as is;
// a failure that ends the session is followed by the closed event.
func (c *Controller) handleError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.reportErrorLocked(err)
}

func (c *Controller) reportErrorLocked(err error) {
	c.logger.Errorf("Bridge error: %v", err)
	c.state.LastError = err.Error()
	c.notifyLocked()
}

// handleClosed is the single teardown path.
func (c *Controller) handleClosed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state.Connection == Disconnected {
		return
	}

	c.registry.CloseAll()
	c.estimator.Reset()
	for _, v := range c.visualizers {
		v.Detach()
	}
	c.session = nil

	c.state = State{
		Address:    c.state.Address,
		Connection: Disconnected,
		LastError:  c.state.LastError,
	}
	c.logger.Infof("Disconnected from rosbridge at %s", c.state.Address)
	c.notifyLocked()
}

// Disconnect requests the transport to close. Teardown follows from the
// closed event.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.state.Connection != Connected || c.session == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	s := c.session
	c.mu.Unlock()

	c.logger.Infof("Disconnecting from rosbridge at %s", s.Address())
	return s.Close()
}

// Shutdown closes any open session, whatever its phase.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		if err := s.Close(); err != nil {
			c.logger.Warnf("Error closing bridge session: %v", err)
		}
	}
}

// SendVelocity publishes a planar velocity command on the command channel.
// Without an open channel it does nothing.
func (c *Controller) SendVelocity(linear, angular float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendVelocityLocked(linear, angular)
}

func (c *Controller) sendVelocityLocked(linear, angular float64) error {
	pub := c.registry.Publisher()
	if pub == nil {
		return nil
	}
	if err := pub.Publish(rosmsg.NewTwist(linear, angular)); err != nil {
		return fmt.Errorf("failed to publish velocity command: %w", err)
	}
	c.recordOutbound(c.bridge.CommandTopic.Name)
	return nil
}

// Publish sends a one-shot message on topic over the current session.
func (c *Controller) Publish(topic, msgType string, msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Connection != Connected || c.session == nil {
		return ErrNotConnected
	}
	if err := c.session.Publish(topic, msgType, msg); err != nil {
		return err
	}
	c.recordOutbound(topic)
	return nil
}

func (c *Controller) hooks(gen uint64) Hooks {
	return Hooks{
		OnOdometry:     func(raw json.RawMessage) { c.handleOdometry(gen, raw) },
		OnPublishTick:  func() { c.publishTick(gen) },
		OnLivenessTick: func() { c.livenessTick(gen) },
	}
}

func (c *Controller) live(gen uint64) bool {
	return gen == c.generation && c.state.Connection == Connected
}

func (c *Controller) handleOdometry(gen uint64, raw json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(gen) {
		return
	}
	if c.recorder != nil {
		c.recorder.RecordInbound(c.bridge.OdometryTopic.Name, len(raw))
	}

	position, orientation, err := rosmsg.DecodeOdometry(raw)
	if err != nil {
		c.logger.Warnf("Skipping odometry sample: %v", err)
		return
	}

	pose := telemetry.Pose2D{
		X:   position.X,
		Y:   position.Y,
		Z:   position.Z,
		Yaw: telemetry.YawFromQuaternion(orientation.X, orientation.Y, orientation.Z, orientation.W),
	}
	now := float64(c.clock().UnixNano()) / float64(time.Second)

	c.state.Pose = pose
	c.state.HasPose = true
	if v, ok := c.estimator.Observe(pose, now); ok {
		c.state.Velocity = v
		c.state.HasVelocity = true
	}
	c.notifyLocked()
}

func (c *Controller) publishTick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(gen) {
		return
	}
	var linear, angular float64
	if c.commands != nil {
		linear, angular = c.commands.Velocity()
	}
	if err := c.sendVelocityLocked(linear, angular); err != nil {
		c.logger.Debugf("Command tick: %v", err)
	}
}

// livenessTick polls the peer list. The call runs without the lock; its
// result and any failure are discarded.
func (c *Controller) livenessTick(gen uint64) {
	c.mu.Lock()
	if !c.live(gen) || c.session == nil {
		c.mu.Unlock()
		return
	}
	s := c.session
	c.mu.Unlock()

	svc := c.bridge.LivenessService
	ctx, cancel := context.WithTimeout(context.Background(), c.bridge.ServiceTimeout())
	defer cancel()
	if _, err := s.CallService(ctx, svc.Name, svc.ServiceType, nil); err != nil {
		c.logger.Debugf("Liveness poll %s failed: %v", svc.Name, err)
	}
}

func (c *Controller) recordOutbound(topic string) {
	if c.recorder != nil {
		c.recorder.RecordOutbound(topic)
	}
}

func (c *Controller) notifyLocked() {
	for _, o := range c.observers {
		o.OnState(c.state)
	}
}
