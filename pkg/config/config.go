package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GoalsConfig is the operational list of named navigation goals.
type GoalsConfig struct {
	Version     string      `yaml:"version" json:"version"`
	ConfigID    string      `yaml:"config_id" json:"config_id"`
	LastUpdated string      `yaml:"lastUpdated" json:"lastUpdated"`
	FrameID     string      `yaml:"frame_id" json:"frame_id"`
	Goals       []GoalEntry `yaml:"goals" json:"goals"`
}

// GoalEntry is one named pose. The heading is given either as a raw
// orientation (z, w) or as a yaw angle in radians.
type GoalEntry struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label,omitempty" json:"label,omitempty"`
	Position    Point    `yaml:"position" json:"position"`
	Orientation *Heading `yaml:"orientation,omitempty" json:"orientation,omitempty"`
	Yaw         *float64 `yaml:"yaw,omitempty" json:"yaw,omitempty"`
}

// Point is a position in the goal frame.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Heading holds the z and w components of an orientation quaternion.
type Heading struct {
	Z float64 `yaml:"z" json:"z"`
	W float64 `yaml:"w" json:"w"`
}

// LoadGoalsConfig loads the goals file from the specified path.
func LoadGoalsConfig(path string) (*GoalsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading goals file: %w", err)
	}
	return ParseGoalsConfig(data)
}

// ParseGoalsConfig parses and validates goals YAML.
func ParseGoalsConfig(data []byte) (*GoalsConfig, error) {
	var cfg GoalsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing goals file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.FrameID == "" {
		cfg.FrameID = "map"
	}
	return &cfg, nil
}

// Validate checks that every goal is named once and carries exactly one heading form.
func (c *GoalsConfig) Validate() error {
	seen := make(map[string]bool, len(c.Goals))
	for i, g := range c.Goals {
		if g.Name == "" {
			return fmt.Errorf("validation failed: goal %d has no name", i)
		}
		if seen[g.Name] {
			return fmt.Errorf("validation failed: duplicate goal name '%s'", g.Name)
		}
		seen[g.Name] = true
		if g.Orientation == nil && g.Yaw == nil {
			return fmt.Errorf("validation failed: goal '%s' needs orientation or yaw", g.Name)
		}
		if g.Orientation != nil && g.Yaw != nil {
			return fmt.Errorf("validation failed: goal '%s' sets both orientation and yaw", g.Name)
		}
	}
	return nil
}

// GetGoal returns the goal with the given name.
func (c *GoalsConfig) GetGoal(name string) (GoalEntry, bool) {
	for _, g := range c.Goals {
		if g.Name == name {
			return g, true
		}
	}
	return GoalEntry{}, false
}

// DefaultGoalsConfig returns the goals used when no goals file exists: the
// sofa, kitchen and living room poses of the fastbot apartment map.
func DefaultGoalsConfig() *GoalsConfig {
	return &GoalsConfig{
		Version:  "1.0",
		ConfigID: "default-goals",
		FrameID:  "map",
		Goals: []GoalEntry{
			{
				Name:        "sofa",
				Label:       "Sofa",
				Position:    Point{X: 0.711, Y: 1.379, Z: 0.0},
				Orientation: &Heading{Z: 0.801, W: 1.0},
			},
			{
				Name:        "kitchen",
				Label:       "Kitchen",
				Position:    Point{X: 1.095, Y: -2.239, Z: 0.0},
				Orientation: &Heading{Z: -0.198, W: 1.0},
			},
			{
				Name:        "living_room",
				Label:       "Living room",
				Position:    Point{X: -1.37, Y: -1.87, Z: 0.0},
				Orientation: &Heading{Z: -0.296, W: 1.0},
			},
		},
	}
}
