// Package zeromq republishes dashboard telemetry on a ZeroMQ PUB socket.
package zeromq

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/telemetrycodec"
)

// NotificationTopic carries JSON change notifications.
const NotificationTopic = "configuration.notification"

// MsgTypeGoalsUpdated announces a new goals configuration.
const MsgTypeGoalsUpdated = "GOALS_UPDATED"

// TelemetryPublisher is a session.Observer that publishes every snapshot as a
// TelemetryFrame flatbuffer. Snapshots are queued and sent from a worker
// goroutine; when the queue is full the snapshot is dropped.
type TelemetryPublisher struct {
	ctx    *zmq4.Context
	sender *MessageSender
	topic  string
	logger customlog.Logger

	queue   chan session.State
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	mu      sync.Mutex
	running bool
}

// NewTelemetryPublisher binds the PUB socket described by cfg.
func NewTelemetryPublisher(cfg config.ZeroMQConfig, logger customlog.Logger) (*TelemetryPublisher, error) {
	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZeroMQ context: %w", err)
	}
	sender, err := newMessageSender(ctx, cfg.PublishBindAddress, logger)
	if err != nil {
		ctx.Term()
		return nil, err
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &TelemetryPublisher{
		ctx:    ctx,
		sender: sender,
		topic:  cfg.Topic,
		logger: logger,
		queue:  make(chan session.State, queueSize),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the send worker.
func (p *TelemetryPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	p.wg.Add(1)
	go p.run()
	p.logger.Infof("Telemetry publisher started on topic %s", p.topic)
}

func (p *TelemetryPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case st := <-p.queue:
			frame := telemetrycodec.Encode(st, time.Now())
			if err := p.sender.PublishMessage(p.topic, frame); err != nil {
				p.logger.Warnf("Failed to publish telemetry frame: %v", err)
			}
		}
	}
}

// OnState implements session.Observer. It never blocks.
func (p *TelemetryPublisher) OnState(st session.State) {
	select {
	case p.queue <- st:
	default:
		if n := p.dropped.Add(1); n%100 == 1 {
			p.logger.Warnf("Telemetry queue full, %d frames dropped so far", n)
		}
	}
}

// Dropped returns how many snapshots were discarded on a full queue.
func (p *TelemetryPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// PublishConfigUpdatedNotification announces that the goals file changed.
func (p *TelemetryPublisher) PublishConfigUpdatedNotification() error {
	msg := ZeroMQMessage{
		Type:      MsgTypeGoalsUpdated,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return p.sender.PublishMessage(NotificationTopic, data)
}

// Stop halts the worker and closes the socket.
func (p *TelemetryPublisher) Stop() {
	p.mu.Lock()
	wasRunning := p.running
	p.running = false
	p.mu.Unlock()

	if wasRunning {
		close(p.done)
		p.wg.Wait()
	}
	p.sender.Close()
	if err := p.ctx.Term(); err != nil {
		p.logger.Warnf("Error terminating ZeroMQ context: %v", err)
	}
	p.logger.Infof("Telemetry publisher stopped")
}
