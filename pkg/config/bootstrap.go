package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapFilename is the file LoadBootstrapConfig reads from the config directory.
const BootstrapFilename = "dashboard_config.yaml"

// BootstrapConfig holds the initial configuration loaded from dashboard_config.yaml
type BootstrapConfig struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Data      DataConfig      `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogPath    string `yaml:"log_path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// BridgeConfig describes the rosbridge gateway and the topics the session uses.
type BridgeConfig struct {
	DefaultAddress     string       `yaml:"default_address"`
	HandshakeTimeoutMs int          `yaml:"handshake_timeout_ms"`
	ServiceTimeoutMs   int          `yaml:"service_timeout_ms"`
	PublishIntervalMs  int          `yaml:"publish_interval_ms"`
	LivenessIntervalMs int          `yaml:"liveness_interval_ms"`
	CommandTopic       TopicConfig  `yaml:"command_topic"`
	OdometryTopic      TopicConfig  `yaml:"odometry_topic"`
	GoalTopic          TopicConfig  `yaml:"goal_topic"`
	MapTopic           TopicConfig  `yaml:"map_topic"`
	LivenessService    ServiceEntry `yaml:"liveness_service"`
}

// TopicConfig names a bridge topic and its message type.
type TopicConfig struct {
	Name        string `yaml:"name"`
	MessageType string `yaml:"message_type"`
}

// ServiceEntry names a bridge service and its type.
type ServiceEntry struct {
	Name        string `yaml:"name"`
	ServiceType string `yaml:"service_type"`
}

// TelemetryConfig holds settings for republishing telemetry outside the dashboard.
type TelemetryConfig struct {
	ZeroMQ ZeroMQConfig `yaml:"zeromq"`
}

// ZeroMQConfig holds ZeroMQ publisher settings
type ZeroMQConfig struct {
	Enabled            bool   `yaml:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address"`
	Topic              string `yaml:"topic"`
	QueueSize          int    `yaml:"queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory     string `yaml:"directory"`
	GoalsFilename string `yaml:"goals_file"`
}

// DefaultBridgeConfig returns the topic layout of the fastbot simulation.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		HandshakeTimeoutMs: 5000,
		ServiceTimeoutMs:   3000,
		PublishIntervalMs:  100,
		LivenessIntervalMs: 10000,
		CommandTopic:       TopicConfig{Name: "/fastbot/cmd_vel", MessageType: "geometry_msgs/msg/Twist"},
		OdometryTopic:      TopicConfig{Name: "/fastbot/odom", MessageType: "nav_msgs/Odometry"},
		GoalTopic:          TopicConfig{Name: "/goal_pose", MessageType: "geometry_msgs/msg/PoseStamped"},
		MapTopic:           TopicConfig{Name: "/map", MessageType: "nav_msgs/msg/OccupancyGrid"},
		LivenessService:    ServiceEntry{Name: "/rosapi/nodes", ServiceType: "rosapi/Nodes"},
	}
}

// PublishInterval is the cadence of the joystick command publisher.
func (b BridgeConfig) PublishInterval() time.Duration {
	return time.Duration(b.PublishIntervalMs) * time.Millisecond
}

// LivenessInterval is the cadence of the peer-list poll.
func (b BridgeConfig) LivenessInterval() time.Duration {
	return time.Duration(b.LivenessIntervalMs) * time.Millisecond
}

// HandshakeTimeout bounds the WebSocket dial.
func (b BridgeConfig) HandshakeTimeout() time.Duration {
	return time.Duration(b.HandshakeTimeoutMs) * time.Millisecond
}

// ServiceTimeout bounds a single call_service round trip.
func (b BridgeConfig) ServiceTimeout() time.Duration {
	return time.Duration(b.ServiceTimeoutMs) * time.Millisecond
}

// LoadBootstrapConfig loads the bootstrap configuration from dashboard_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFilename)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg := BootstrapConfig{Bridge: DefaultBridgeConfig()}
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if bootstrapCfg.Server.HTTPPort == 0 {
		return nil, fmt.Errorf("missing required field in bootstrap config: server.http_port")
	}
	if bootstrapCfg.Bridge.CommandTopic.Name == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: bridge.command_topic.name")
	}
	if bootstrapCfg.Bridge.OdometryTopic.Name == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: bridge.odometry_topic.name")
	}
	if bootstrapCfg.Bridge.GoalTopic.Name == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: bridge.goal_topic.name")
	}
	if bootstrapCfg.Telemetry.ZeroMQ.Enabled && bootstrapCfg.Telemetry.ZeroMQ.PublishBindAddress == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: telemetry.zeromq.publish_bind_address")
	}
	if bootstrapCfg.Data.Directory == "" {
		return nil, fmt.Errorf("missing required field in bootstrap config: data.directory")
	}

	applyBridgeDefaults(&bootstrapCfg.Bridge)
	if bootstrapCfg.Data.GoalsFilename == "" {
		bootstrapCfg.Data.GoalsFilename = "goals.yaml"
	}
	if bootstrapCfg.Telemetry.ZeroMQ.Topic == "" {
		bootstrapCfg.Telemetry.ZeroMQ.Topic = "telemetry.state"
	}
	if bootstrapCfg.Telemetry.ZeroMQ.QueueSize <= 0 {
		bootstrapCfg.Telemetry.ZeroMQ.QueueSize = 64
	}

	return &bootstrapCfg, nil
}

// applyBridgeDefaults fills zero intervals and empty message types that an
// explicit YAML section may have blanked.
func applyBridgeDefaults(b *BridgeConfig) {
	d := DefaultBridgeConfig()
	if b.HandshakeTimeoutMs <= 0 {
		b.HandshakeTimeoutMs = d.HandshakeTimeoutMs
	}
	if b.ServiceTimeoutMs <= 0 {
		b.ServiceTimeoutMs = d.ServiceTimeoutMs
	}
	if b.PublishIntervalMs <= 0 {
		b.PublishIntervalMs = d.PublishIntervalMs
	}
	if b.LivenessIntervalMs <= 0 {
		b.LivenessIntervalMs = d.LivenessIntervalMs
	}
	if b.CommandTopic.MessageType == "" {
		b.CommandTopic.MessageType = d.CommandTopic.MessageType
	}
	if b.OdometryTopic.MessageType == "" {
		b.OdometryTopic.MessageType = d.OdometryTopic.MessageType
	}
	if b.GoalTopic.MessageType == "" {
		b.GoalTopic.MessageType = d.GoalTopic.MessageType
	}
	if b.MapTopic.Name == "" {
		b.MapTopic = d.MapTopic
	}
	if b.LivenessService.Name == "" {
		b.LivenessService = d.LivenessService
	}
}
