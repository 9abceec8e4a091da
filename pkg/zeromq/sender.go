package zeromq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// Common errors
var (
	ErrServiceClosed = errors.New("zeromq service is closed")
)

// ZeroMQMessage is the JSON envelope used for notifications
type ZeroMQMessage struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// MessageSender handles sending messages to a ZeroMQ PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	running bool
	mu      sync.Mutex
}

// newMessageSender creates a PUB socket bound to pubAddress
func newMessageSender(ctx *zmq4.Context, pubAddress string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.Bind(pubAddress); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", pubAddress, err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	logger.Infof("MessageSender initialized on %s", pubAddress)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		running: true,
	}, nil
}

// PublishMessage sends a message with the given topic
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	// topic frame first, then the payload
	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}
