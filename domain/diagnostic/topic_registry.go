package diagnostic

import (
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// Traffic directions.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// TopicInfo holds traffic counters for a bridge topic
type TopicInfo struct {
	Topic        string
	MessageType  string
	Direction    string
	StatCount    int64
	Bytes        int64
	LastReceived time.Time
}

// TopicStats is the reporting view of a TopicInfo.
type TopicStats struct {
	Topic       string `json:"topic"`
	MessageType string `json:"type,omitempty"`
	Direction   string `json:"direction"`
	Count       int64  `json:"count"`
	Bytes       string `json:"bytes"`
	LastSeen    string `json:"last_seen"`
}

// TopicRegistry counts messages per bridge topic.
type TopicRegistry struct {
	logger customlog.Logger
	clock  func() time.Time
	topics map[string]*TopicInfo
	mu     sync.RWMutex
}

// NewTopicRegistry creates a new topic registry
func NewTopicRegistry(logger customlog.Logger) *TopicRegistry {
	return &TopicRegistry{
		logger: logger,
		clock:  time.Now,
		topics: make(map[string]*TopicInfo),
	}
}

// LoadFromConfig registers the topics the dashboard uses so they are listed
// before any traffic arrives. Existing counters are cleared.
func (r *TopicRegistry) LoadFromConfig(bridge config.BridgeConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics = make(map[string]*TopicInfo)
	register := func(t config.TopicConfig, direction string) {
		if t.Name == "" {
			return
		}
		r.topics[t.Name] = &TopicInfo{Topic: t.Name, MessageType: t.MessageType, Direction: direction}
	}
	register(bridge.CommandTopic, DirectionOutbound)
	register(bridge.GoalTopic, DirectionOutbound)
	register(bridge.OdometryTopic, DirectionInbound)
	register(bridge.MapTopic, DirectionInbound)

	r.logger.Infof("Loaded %d topics into registry", len(r.topics))
}

// RecordInbound counts a message received on topic.
func (r *TopicRegistry) RecordInbound(topic string, size int) {
	r.update(topic, DirectionInbound, int64(size))
}

// RecordOutbound counts a message sent on topic.
func (r *TopicRegistry) RecordOutbound(topic string) {
	r.update(topic, DirectionOutbound, 0)
}

func (r *TopicRegistry) update(topic, direction string, size int64) {
	now := r.clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.topics[topic]
	if !exists {
		info = &TopicInfo{Topic: topic, Direction: direction}
		r.topics[topic] = info
	}
	info.StatCount++
	info.Bytes += size
	info.LastReceived = now
}

// GetTopicInfo gets a copy of the counters for a topic
func (r *TopicRegistry) GetTopicInfo(topic string) (TopicInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.topics[topic]
	if !exists {
		return TopicInfo{}, false
	}
	return *info, true
}

// GetTopicStats returns the counters of every topic, sorted by name.
func (r *TopicRegistry) GetTopicStats() []TopicStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]TopicStats, 0, len(r.topics))
	for _, info := range r.topics {
		lastSeen := "never"
		if !info.LastReceived.IsZero() {
			lastSeen = humanize.Time(info.LastReceived)
		}
		stats = append(stats, TopicStats{
			Topic:       info.Topic,
			MessageType: info.MessageType,
			Direction:   info.Direction,
			Count:       info.StatCount,
			Bytes:       humanize.Bytes(uint64(info.Bytes)),
			LastSeen:    lastSeen,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Topic < stats[j].Topic })
	return stats
}
