package session

import (
	"context"
	"encoding/json"
	"time"

	customlog "github.com/open-teleop/dashboard/pkg/log"
	"github.com/open-teleop/dashboard/pkg/rosbridge"
)

// Events are the asynchronous transport notifications. OnClose fires exactly
// once per Session, after any OnError for the same failure.
type Events struct {
	OnError func(err error)
	OnClose func()
}

// Transport opens bridge sessions.
type Transport interface {
	// Dial connects to address. Events are not delivered until the returned
	// Session's Listen is called.
	Dial(ctx context.Context, address string, events Events) (Session, error)
}

// Session is one open bridge connection.
type Session interface {
	Address() string
	Listen()
	Close() error
	Advertise(topic, msgType string) (Publisher, error)
	Subscribe(topic, msgType string, handler func(json.RawMessage)) (Subscription, error)
	Publish(topic, msgType string, msg interface{}) error
	CallService(ctx context.Context, service, serviceType string, args interface{}) (json.RawMessage, error)
}

// Publisher is an advertised topic on a Session.
type Publisher interface {
	Publish(msg interface{}) error
	Unadvertise() error
}

// Subscription is an active topic subscription on a Session.
type Subscription interface {
	Unsubscribe() error
}

// RosbridgeTransport dials real rosbridge servers.
type RosbridgeTransport struct {
	logger           customlog.Logger
	handshakeTimeout time.Duration
}

// NewRosbridgeTransport creates a transport backed by pkg/rosbridge.
func NewRosbridgeTransport(logger customlog.Logger, handshakeTimeout time.Duration) *RosbridgeTransport {
	return &RosbridgeTransport{logger: logger, handshakeTimeout: handshakeTimeout}
}

// Dial implements Transport.
func (t *RosbridgeTransport) Dial(ctx context.Context, address string, events Events) (Session, error) {
	conn, err := rosbridge.Dial(ctx, address, rosbridge.Options{
		HandshakeTimeout: t.handshakeTimeout,
		Logger:           t.logger,
		OnError:          events.OnError,
		OnClose:          events.OnClose,
	})
	if err != nil {
		return nil, err
	}
	return &rosbridgeSession{Conn: conn}, nil
}

type rosbridgeSession struct {
	*rosbridge.Conn
}

func (s *rosbridgeSession) Advertise(topic, msgType string) (Publisher, error) {
	pub, err := s.Conn.Advertise(topic, msgType)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func (s *rosbridgeSession) Subscribe(topic, msgType string, handler func(json.RawMessage)) (Subscription, error) {
	sub, err := s.Conn.Subscribe(topic, msgType, handler)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
