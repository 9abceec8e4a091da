package mapview

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/dashboard/domain/session"
	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

type stubSubscription struct{ unsubscribed int }

func (s *stubSubscription) Unsubscribe() error {
	s.unsubscribed++
	return nil
}

// stubSession implements only what the relay touches.
type stubSession struct {
	session.Session
	topics   []string
	handlers []func(json.RawMessage)
	subs     []*stubSubscription
}

func (s *stubSession) Subscribe(topic, msgType string, handler func(json.RawMessage)) (session.Subscription, error) {
	s.topics = append(s.topics, topic+" "+msgType)
	s.handlers = append(s.handlers, handler)
	sub := &stubSubscription{}
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *stubSession) CallService(context.Context, string, string, interface{}) (json.RawMessage, error) {
	return nil, nil
}

type countingRecorder struct {
	mu      sync.Mutex
	inbound map[string]int
}

func (r *countingRecorder) RecordInbound(topic string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbound[topic]++
}
func (r *countingRecorder) RecordOutbound(string) {}

const gridJSON = `{
	"header": {"frame_id": "map"},
	"info": {
		"resolution": 0.05,
		"width": 200,
		"height": 180,
		"origin": {"position": {"x": -5.0, "y": -4.5, "z": 0}, "orientation": {"w": 1}}
	},
	"data": [0, 0, 100, -1]
}`

func newTestRelay(rec session.TrafficRecorder) *MapRelay {
	r := NewMapRelay(config.DefaultBridgeConfig().MapTopic, rec, customlog.NewNopLogger())
	r.clock = func() time.Time { return time.Unix(1000, 0) }
	return r
}

// deliver hands raw to the relay and waits until the decode worker is done
// with it.
func deliver(t *testing.T, relay *MapRelay, handler func(json.RawMessage), raw string) {
	t.Helper()
	before := relay.pool.GetMetrics().ProcessedCount
	handler(json.RawMessage(raw))
	require.Eventually(t, func() bool {
		return relay.pool.GetMetrics().ProcessedCount > before
	}, 2*time.Second, time.Millisecond)
}

func TestRelayTracksGridGeometry(t *testing.T) {
	rec := &countingRecorder{inbound: map[string]int{}}
	relay := newTestRelay(rec)
	defer relay.Close()
	s := &stubSession{}

	require.NoError(t, relay.Attach(s))
	require.NoError(t, relay.Attach(s))
	require.Len(t, s.handlers, 1, "attach is idempotent")
	assert.Equal(t, "/map nav_msgs/msg/OccupancyGrid", s.topics[0])
	assert.False(t, relay.Snapshot().Available)

	deliver(t, relay, s.handlers[0], gridJSON)
	snap := relay.Snapshot()
	require.True(t, snap.Available)
	assert.Equal(t, "map", snap.FrameID)
	assert.Equal(t, 200, snap.Width)
	assert.Equal(t, 180, snap.Height)
	assert.InDelta(t, 405.0/10.0, snap.ScaleX, 1e-9)
	assert.InDelta(t, 360.0/9.0, snap.ScaleY, 1e-9)
	assert.Equal(t, -5.0, snap.ShiftX)
	assert.Equal(t, -4.5, snap.ShiftY)
	assert.Equal(t, uint64(1), snap.Updates)
	assert.Equal(t, time.Unix(1000, 0), snap.UpdatedAt)
	assert.Equal(t, 1, rec.inbound["/map"])

	deliver(t, relay, s.handlers[0], gridJSON)
	assert.Equal(t, uint64(2), relay.Snapshot().Updates)
}

func TestRelaySkipsBadGrids(t *testing.T) {
	relay := newTestRelay(nil)
	defer relay.Close()
	s := &stubSession{}
	require.NoError(t, relay.Attach(s))

	deliver(t, relay, s.handlers[0], `{"info": {"width": 0, "height": 10, "resolution": 0.05}}`)
	deliver(t, relay, s.handlers[0], `[1, 2`)
	assert.False(t, relay.Snapshot().Available)
	assert.Equal(t, int64(2), relay.pool.GetMetrics().ErrorCount)
}

func TestRelayDetachClears(t *testing.T) {
	relay := newTestRelay(nil)
	defer relay.Close()
	s := &stubSession{}
	require.NoError(t, relay.Attach(s))
	handler := s.handlers[0]
	deliver(t, relay, handler, gridJSON)
	require.True(t, relay.Snapshot().Available)

	relay.Detach()
	relay.Detach()
	assert.Equal(t, 1, s.subs[0].unsubscribed)
	assert.Equal(t, Snapshot{}, relay.Snapshot())

	// a late delivery from the old session does not resurrect the map
	deliver(t, relay, handler, gridJSON)
	assert.False(t, relay.Snapshot().Available)

	require.NoError(t, relay.Attach(s))
	assert.Len(t, s.handlers, 2)

	// nor does it once a new session is attached
	deliver(t, relay, handler, gridJSON)
	assert.False(t, relay.Snapshot().Available)
	deliver(t, relay, s.handlers[1], gridJSON)
	assert.True(t, relay.Snapshot().Available)
}
