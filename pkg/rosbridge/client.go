// Package rosbridge is a minimal client for the rosbridge v2 WebSocket
// protocol: topic advertise/publish, subscribe, and service calls.
package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// Common errors
var (
	ErrClosed        = errors.New("rosbridge connection is closed")
	ErrServiceFailed = errors.New("rosbridge service call failed")
)

const writeTimeout = 2 * time.Second

// Options configures a Conn. OnError and OnClose are invoked from the read
// loop; OnClose fires exactly once per Conn.
type Options struct {
	HandshakeTimeout time.Duration
	Logger           customlog.Logger
	OnError          func(err error)
	OnClose          func()
}

type serviceResult struct {
	values json.RawMessage
	err    error
}

// Conn is one rosbridge session over a WebSocket.
type Conn struct {
	ws      *websocket.Conn
	address string
	logger  customlog.Logger
	onError func(error)
	onClose func()

	writeMu sync.Mutex

	mu          sync.Mutex
	subscribers map[string]map[string]func(json.RawMessage) // topic -> id -> handler
	pending     map[string]chan serviceResult
	closing     bool
	closed      bool

	listenOnce sync.Once
	closeOnce  sync.Once
	done       chan struct{}
}

// Dial opens the WebSocket to address. The read loop does not run until
// Listen is called, so callers can finish their own bookkeeping for the
// "connected" event before any inbound traffic or close event is delivered.
func Dial(ctx context.Context, address string, opts Options) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rosbridge at %s: %w", address, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	return &Conn{
		ws:          ws,
		address:     address,
		logger:      logger,
		onError:     opts.OnError,
		onClose:     opts.OnClose,
		subscribers: make(map[string]map[string]func(json.RawMessage)),
		pending:     make(map[string]chan serviceResult),
		done:        make(chan struct{}),
	}, nil
}

// Address returns the URL the connection was dialed with.
func (c *Conn) Address() string {
	return c.address
}

// Listen starts the read loop. Calling it more than once has no effect.
func (c *Conn) Listen() {
	c.listenOnce.Do(func() {
		go c.readLoop()
	})
}

// IsConnected reports whether the connection is still usable.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.closing
}

// Done is closed once the read loop has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close requests an orderly shutdown. It does not wait for the read loop;
// OnClose is delivered from there.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()

	return c.ws.Close()
}

func (c *Conn) send(op Operation) error {
	c.mu.Lock()
	unusable := c.closed || c.closing
	c.mu.Unlock()
	if unusable {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(op); err != nil {
		return fmt.Errorf("failed to send %s: %w", op.Op, err)
	}
	return nil
}

// Publisher is an advertised topic.
type Publisher struct {
	conn    *Conn
	id      string
	topic   string
	msgType string
}

// Advertise announces this client as a publisher of topic.
func (c *Conn) Advertise(topic, msgType string) (*Publisher, error) {
	id := "advertise:" + topic + ":" + uuid.NewString()
	if err := c.send(AdvertiseOp(id, topic, msgType)); err != nil {
		return nil, err
	}
	c.logger.Debugf("Advertised %s (%s)", topic, msgType)
	return &Publisher{conn: c, id: id, topic: topic, msgType: msgType}, nil
}

// Topic returns the advertised topic name.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish sends msg on the advertised topic.
func (p *Publisher) Publish(msg interface{}) error {
	return p.conn.send(PublishOp(p.topic, msg))
}

// Unadvertise withdraws the advertisement.
func (p *Publisher) Unadvertise() error {
	return p.conn.send(UnadvertiseOp(p.id, p.topic))
}

// Publish advertises topic and sends a single message on it.
func (c *Conn) Publish(topic, msgType string, msg interface{}) error {
	pub, err := c.Advertise(topic, msgType)
	if err != nil {
		return err
	}
	return pub.Publish(msg)
}

// Subscription is an active topic subscription.
type Subscription struct {
	conn  *Conn
	id    string
	topic string
	once  sync.Once
}

// Subscribe registers handler for messages on topic. Handlers run on the
// read loop goroutine, in delivery order.
func (c *Conn) Subscribe(topic, msgType string, handler func(json.RawMessage)) (*Subscription, error) {
	id := "subscribe:" + topic + ":" + uuid.NewString()

	c.mu.Lock()
	if c.subscribers[topic] == nil {
		c.subscribers[topic] = make(map[string]func(json.RawMessage))
	}
	c.subscribers[topic][id] = handler
	c.mu.Unlock()

	if err := c.send(SubscribeOp(id, topic, msgType)); err != nil {
		c.removeSubscriber(topic, id)
		return nil, err
	}
	c.logger.Debugf("Subscribed to %s (%s)", topic, msgType)
	return &Subscription{conn: c, id: id, topic: topic}, nil
}

// Unsubscribe stops delivery to this subscription's handler.
func (s *Subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.conn.removeSubscriber(s.topic, s.id)
		err = s.conn.send(UnsubscribeOp(s.id, s.topic))
	})
	return err
}

func (c *Conn) removeSubscriber(topic, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribers[topic], id)
	if len(c.subscribers[topic]) == 0 {
		delete(c.subscribers, topic)
	}
}

// CallService invokes a bridge service and waits for its response.
func (c *Conn) CallService(ctx context.Context, service, serviceType string, args interface{}) (json.RawMessage, error) {
	if args == nil {
		args = struct{}{}
	}
	id := "call_service:" + service + ":" + uuid.NewString()
	ch := make(chan serviceResult, 1)

	c.mu.Lock()
	if c.closed || c.closing {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(CallServiceOp(id, service, serviceType, args)); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.values, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("service %s: %w", service, ctx.Err())
	case <-c.done:
		return nil, ErrClosed
	}
}

// GetNodes lists the nodes known to the ROS graph via rosapi.
func (c *Conn) GetNodes(ctx context.Context) ([]string, error) {
	values, err := c.CallService(ctx, "/rosapi/nodes", "rosapi/Nodes", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Nodes []string `json:"nodes"`
	}
	if err := json.Unmarshal(values, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode /rosapi/nodes response: %w", err)
	}
	return resp.Nodes, nil
}

func (c *Conn) readLoop() {
	defer c.finish()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			requested := c.closing
			c.mu.Unlock()
			if !requested && !isNormalClose(err) {
				c.reportError(fmt.Errorf("rosbridge read failed: %w", err))
			} else {
				c.logger.Debugf("rosbridge connection to %s closed: %v", c.address, err)
			}
			return
		}

		var in Incoming
		if err := json.Unmarshal(data, &in); err != nil {
			c.logger.Warnf("Dropping undecodable rosbridge frame (%d bytes): %v", len(data), err)
			continue
		}
		c.dispatch(in)
	}
}

func (c *Conn) dispatch(in Incoming) {
	switch in.Op {
	case OpPublish:
		c.mu.Lock()
		handlers := make([]func(json.RawMessage), 0, len(c.subscribers[in.Topic]))
		for _, h := range c.subscribers[in.Topic] {
			handlers = append(handlers, h)
		}
		c.mu.Unlock()
		for _, h := range handlers {
			h(in.Msg)
		}

	case OpServiceResponse:
		c.mu.Lock()
		ch, ok := c.pending[in.ID]
		c.mu.Unlock()
		if !ok {
			c.logger.Debugf("Ignoring service_response with unknown id %s", in.ID)
			return
		}
		res := serviceResult{values: in.Values}
		if in.Result != nil && !*in.Result {
			res = serviceResult{err: fmt.Errorf("%w: %s: %s", ErrServiceFailed, in.Service, string(in.Values))}
		}
		select {
		case ch <- res:
		default:
		}

	case OpStatus:
		c.logger.Infof("rosbridge status (%s): %s", in.Level, string(in.Msg))

	default:
		c.logger.Debugf("Ignoring rosbridge op %q", in.Op)
	}
}

func isNormalClose(err error) bool {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}

func (c *Conn) reportError(err error) {
	c.logger.Errorf("%v", err)
	if c.onError != nil {
		c.onError(err)
	}
}

// finish marks the connection closed and delivers OnClose once.
func (c *Conn) finish() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.subscribers = make(map[string]map[string]func(json.RawMessage))
		c.mu.Unlock()

		_ = c.ws.Close()
		close(c.done)

		if c.onClose != nil {
			c.onClose()
		}
	})
}
