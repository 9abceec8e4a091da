// Package mapview relays occupancy grid geometry to the map viewer.
package mapview

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/processing"
	"github.com/open-teleop/dashboard/pkg/rosbridge"
	"github.com/open-teleop/dashboard/pkg/rosmsg"
)

// Default viewer canvas size in pixels.
const (
	DefaultViewerWidth  = 405
	DefaultViewerHeight = 360
)

// Snapshot is the latest grid geometry and how to fit it into the viewer.
type Snapshot struct {
	Available  bool        `json:"available"`
	FrameID    string      `json:"frame_id,omitempty"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Resolution float64     `json:"resolution"`
	Origin     rosmsg.Pose `json:"origin"`
	// ScaleX and ScaleY are pixels per metre; ShiftX and ShiftY move the
	// scene so the grid origin lands on the viewer origin.
	ScaleX    float64   `json:"scale_x"`
	ScaleY    float64   `json:"scale_y"`
	ShiftX    float64   `json:"shift_x"`
	ShiftY    float64   `json:"shift_y"`
	Updates   uint64    `json:"updates"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapRelay follows the bridge session: while attached it keeps the geometry
// of the most recent occupancy grid. Grids are decoded on a single-worker
// pool so large maps do not stall odometry on the bridge read loop.
type MapRelay struct {
	topic        config.TopicConfig
	viewerWidth  float64
	viewerHeight float64
	recorder     session.TrafficRecorder
	logger       customlog.Logger
	clock        func() time.Time
	pool         *processing.ProcessingPool

	mu           sync.Mutex
	subscription session.Subscription
	epoch        uint64
	snapshot     Snapshot
}

// NewMapRelay creates a detached relay for topic. recorder may be nil.
func NewMapRelay(topic config.TopicConfig, recorder session.TrafficRecorder, logger customlog.Logger) *MapRelay {
	m := &MapRelay{
		topic:        topic,
		viewerWidth:  DefaultViewerWidth,
		viewerHeight: DefaultViewerHeight,
		recorder:     recorder,
		logger:       logger,
		clock:        time.Now,
		pool:         processing.NewProcessingPool("map", 1, 1, logger),
	}
	m.pool.SetProcessor(m.processGrid)
	m.pool.Start()
	return m
}

// Close stops the decode worker. The relay receives no further grids.
func (m *MapRelay) Close() {
	m.pool.Stop()
}

// Attach subscribes to the map topic on s. A relay that is already attached
// is left as it is.
func (m *MapRelay) Attach(s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscription != nil {
		return nil
	}
	epoch := m.epoch
	sub, err := s.Subscribe(m.topic.Name, m.topic.MessageType, func(raw json.RawMessage) {
		m.handleGrid(epoch, raw)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", m.topic.Name, err)
	}
	m.subscription = sub
	m.logger.Infof("Map relay attached to %s", m.topic.Name)
	return nil
}

// Detach drops the subscription and clears the map.
func (m *MapRelay) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscription != nil {
		if err := m.subscription.Unsubscribe(); err != nil && !errors.Is(err, rosbridge.ErrClosed) {
			m.logger.Warnf("Failed to unsubscribe %s: %v", m.topic.Name, err)
		}
		m.subscription = nil
	}
	m.epoch++
	m.snapshot = Snapshot{}
}

// Snapshot returns the current map geometry.
func (m *MapRelay) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *MapRelay) handleGrid(epoch uint64, raw json.RawMessage) {
	if m.recorder != nil {
		m.recorder.RecordInbound(m.topic.Name, len(raw))
	}
	m.pool.Submit(processing.Job{
		Topic:    m.topic.Name,
		Payload:  raw,
		Received: m.clock(),
		Epoch:    epoch,
	})
}

func (m *MapRelay) processGrid(job processing.Job) error {
	var grid rosmsg.OccupancyGrid
	if err := json.Unmarshal(job.Payload, &grid); err != nil {
		return fmt.Errorf("undecodable map message: %w", err)
	}
	info := grid.Info
	if info.Width <= 0 || info.Height <= 0 || info.Resolution <= 0 {
		return fmt.Errorf("degenerate map geometry %dx%d @ %g", info.Width, info.Height, info.Resolution)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscription == nil || job.Epoch != m.epoch {
		return nil
	}
	m.snapshot = Snapshot{
		Available:  true,
		FrameID:    grid.Header.FrameID,
		Width:      info.Width,
		Height:     info.Height,
		Resolution: info.Resolution,
		Origin:     info.Origin,
		ScaleX:     m.viewerWidth / (float64(info.Width) * info.Resolution),
		ScaleY:     m.viewerHeight / (float64(info.Height) * info.Resolution),
		ShiftX:     info.Origin.Position.X,
		ShiftY:     info.Origin.Position.Y,
		Updates:    m.snapshot.Updates + 1,
		UpdatedAt:  job.Received,
	}
	return nil
}
