package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

func noopHooks() Hooks {
	return Hooks{
		OnOdometry:     func(json.RawMessage) {},
		OnPublishTick:  func() {},
		OnLivenessTick: func() {},
	}
}

func TestOpenAllCreatesEachChannelOnce(t *testing.T) {
	sched := &fakeScheduler{}
	r := NewChannelRegistry(config.DefaultBridgeConfig(), sched.schedule, customlog.NewNopLogger())
	s := newFakeSession("ws://robot:9090", Events{})

	require.NoError(t, r.OpenAll(s, noopHooks()))
	require.NoError(t, r.OpenAll(s, noopHooks()))

	advertised, subscribed := s.counts()
	assert.Equal(t, 1, advertised)
	assert.Equal(t, 1, subscribed)
	require.Len(t, sched.all(), 2)
	assert.Equal(t, 100*time.Millisecond, sched.all()[0].interval)
	assert.Equal(t, 10*time.Second, sched.all()[1].interval)

	assert.Equal(t, "/fastbot/cmd_vel", s.publishers[0].topic)
	assert.Equal(t, "geometry_msgs/msg/Twist", s.publishers[0].msgType)
	assert.Equal(t, "/fastbot/odom", s.subscriptions[0].topic)
	assert.Equal(t, "nav_msgs/Odometry", s.subscriptions[0].msgType)
	assert.True(t, r.IsOpen())
	assert.Same(t, s.publishers[0], r.Publisher())
}

func TestCloseAllThenOpenAllRefreshesHandles(t *testing.T) {
	sched := &fakeScheduler{}
	r := NewChannelRegistry(config.DefaultBridgeConfig(), sched.schedule, customlog.NewNopLogger())
	s := newFakeSession("ws://robot:9090", Events{})

	require.NoError(t, r.OpenAll(s, noopHooks()))
	r.CloseAll()
	r.CloseAll()

	assert.False(t, r.IsOpen())
	assert.Nil(t, r.Publisher())
	assert.Equal(t, 1, s.publishers[0].unadvertised)
	assert.Equal(t, 1, s.subscriptions[0].unsubscribed)
	for _, task := range sched.all() {
		assert.Equal(t, 1, task.stopCount())
	}

	require.NoError(t, r.OpenAll(s, noopHooks()))
	advertised, subscribed := s.counts()
	assert.Equal(t, 2, advertised)
	assert.Equal(t, 2, subscribed)
	tasks := sched.all()
	require.Len(t, tasks, 4)
	assert.Equal(t, 0, tasks[2].stopCount())
	assert.Equal(t, 0, tasks[3].stopCount())
	assert.Same(t, s.publishers[1], r.Publisher())
}

func TestCloseAllWithNothingOpen(t *testing.T) {
	r := NewChannelRegistry(config.DefaultBridgeConfig(), (&fakeScheduler{}).schedule, customlog.NewNopLogger())
	r.CloseAll()
	assert.False(t, r.IsOpen())
}

func TestOpenAllSubscribeFailureReleasesPublisher(t *testing.T) {
	sched := &fakeScheduler{}
	r := NewChannelRegistry(config.DefaultBridgeConfig(), sched.schedule, customlog.NewNopLogger())
	s := newFakeSession("ws://robot:9090", Events{})
	s.subscribeErr = errors.New("bridge refused")

	err := r.OpenAll(s, noopHooks())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to subscribe /fastbot/odom")
	assert.False(t, r.IsOpen())
	assert.Equal(t, 1, s.publishers[0].unadvertised)
	assert.Empty(t, sched.all())
}

func TestEveryStopsTicking(t *testing.T) {
	ticks := make(chan struct{}, 100)
	task := Every(5*time.Millisecond, func() { ticks <- struct{}{} })

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("periodic task never ran")
	}
	task.Stop()
	task.Stop()

	// drain anything already in flight, then expect silence
	time.Sleep(20 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, ticks, 0)
}
