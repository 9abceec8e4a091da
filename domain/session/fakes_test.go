package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

type fakeTransport struct {
	mu           sync.Mutex
	dialErr      error
	subscribeErr error
	sessions     []*fakeSession
	dialed       chan *fakeSession
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{dialed: make(chan *fakeSession, 8)}
}

func (t *fakeTransport) Dial(ctx context.Context, address string, events Events) (Session, error) {
	t.mu.Lock()
	err := t.dialErr
	t.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s := newFakeSession(address, events)
	t.mu.Lock()
	s.subscribeErr = t.subscribeErr
	t.sessions = append(t.sessions, s)
	t.mu.Unlock()
	t.dialed <- s
	return s, nil
}

type fakeMessage struct {
	Topic string
	Type  string
	Msg   interface{}
}

// fakeSession models the ordering guarantees of a rosbridge connection:
// nothing is delivered before Listen, and OnClose fires once.
type fakeSession struct {
	address string
	events  Events

	mu            sync.Mutex
	listening     bool
	listened      chan struct{}
	closeWanted   bool
	closed        bool
	publishers    []*fakePublisher
	subscriptions []*fakeSubscription
	oneShots      []fakeMessage
	serviceCalls  []string
	serviceErr    error
	advertiseErr  error
	subscribeErr  error
}

func newFakeSession(address string, events Events) *fakeSession {
	return &fakeSession{address: address, events: events, listened: make(chan struct{})}
}

func (s *fakeSession) Address() string { return s.address }

func (s *fakeSession) Listen() {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return
	}
	s.listening = true
	close(s.listened)
	fire := s.closeWanted
	s.mu.Unlock()
	if fire {
		s.fireClose()
	}
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closeWanted = true
	fire := s.listening
	s.mu.Unlock()
	if fire {
		s.fireClose()
	}
	return nil
}

func (s *fakeSession) fireClose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.events.OnClose()
}

// drop simulates the server going away.
func (s *fakeSession) drop(err error) {
	s.events.OnError(err)
	s.fireClose()
}

func (s *fakeSession) Advertise(topic, msgType string) (Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advertiseErr != nil {
		return nil, s.advertiseErr
	}
	p := &fakePublisher{topic: topic, msgType: msgType}
	s.publishers = append(s.publishers, p)
	return p, nil
}

func (s *fakeSession) Subscribe(topic, msgType string, handler func(json.RawMessage)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	sub := &fakeSubscription{topic: topic, msgType: msgType, handler: handler}
	s.subscriptions = append(s.subscriptions, sub)
	return sub, nil
}

func (s *fakeSession) Publish(topic, msgType string, msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oneShots = append(s.oneShots, fakeMessage{Topic: topic, Type: msgType, Msg: msg})
	return nil
}

func (s *fakeSession) CallService(ctx context.Context, service, serviceType string, args interface{}) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceCalls = append(s.serviceCalls, service)
	if s.serviceErr != nil {
		return nil, s.serviceErr
	}
	return json.RawMessage(`{"nodes":[]}`), nil
}

// emit delivers raw to every active subscriber of topic, as the read loop would.
func (s *fakeSession) emit(topic string, raw string) {
	s.mu.Lock()
	var handlers []func(json.RawMessage)
	for _, sub := range s.subscriptions {
		if sub.topic == topic && !sub.isUnsubscribed() {
			handlers = append(handlers, sub.handler)
		}
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(json.RawMessage(raw))
	}
}

func (s *fakeSession) counts() (advertised, subscribed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.publishers), len(s.subscriptions)
}

type fakePublisher struct {
	topic   string
	msgType string

	mu           sync.Mutex
	messages     []interface{}
	unadvertised int
}

func (p *fakePublisher) Publish(msg interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unadvertised > 0 {
		return errors.New("publish on unadvertised topic")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) Unadvertise() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unadvertised++
	return nil
}

func (p *fakePublisher) sent() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interface{}(nil), p.messages...)
}

type fakeSubscription struct {
	topic   string
	msgType string
	handler func(json.RawMessage)

	mu           sync.Mutex
	unsubscribed int
}

func (s *fakeSubscription) Unsubscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed++
	return nil
}

func (s *fakeSubscription) isUnsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed > 0
}

type fakeTask struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	stopped int
}

func (t *fakeTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped++
}

func (t *fakeTask) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
}

func (f *fakeScheduler) schedule(interval time.Duration, fn func()) PeriodicTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTask{interval: interval, fn: fn}
	f.tasks = append(f.tasks, t)
	return t
}

func (f *fakeScheduler) all() []*fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeTask(nil), f.tasks...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedCommand struct{ linear, angular float64 }

func (f fixedCommand) Velocity() (float64, float64) { return f.linear, f.angular }

type fakeVisualizer struct {
	mu       sync.Mutex
	attached []Session
	detached int
}

func (v *fakeVisualizer) Attach(s Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = append(v.attached, s)
	return nil
}

func (v *fakeVisualizer) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.detached++
}

// odometryJSON renders a nav_msgs/Odometry payload for a planar pose.
func odometryJSON(x, y, yaw float64) string {
	return fmt.Sprintf(`{"header":{"frame_id":"odom"},"pose":{"pose":{"position":{"x":%g,"y":%g,"z":0},"orientation":{"x":0,"y":0,"z":%g,"w":%g}}}}`,
		x, y, math.Sin(yaw/2), math.Cos(yaw/2))
}
