package teleop

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// ErrUnknownPreset is returned for a preset name that does not exist.
var ErrUnknownPreset = errors.New("unknown command preset")

// JoystickCommand is the virtual joystick position. Vertical drives forward
// speed and Horizontal the turn rate. Values are used as given.
type JoystickCommand struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

// Preset is a fixed one-shot velocity command.
type Preset struct {
	Name    string  `json:"name"`
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

var presets = map[string]Preset{
	"stop":       {Name: "stop"},
	"turn_right": {Name: "turn_right", Linear: 0.2, Angular: -0.5},
}

// VelocitySender publishes a planar velocity command.
type VelocitySender interface {
	SendVelocity(linear, angular float64) error
}

// TeleopService holds the joystick state that the command publisher samples
// and sends preset commands.
type TeleopService struct {
	sender VelocitySender
	logger customlog.Logger

	mu       sync.RWMutex
	joystick JoystickCommand
}

// NewTeleopService creates a teleop service instance
func NewTeleopService(sender VelocitySender, logger customlog.Logger) *TeleopService {
	return &TeleopService{sender: sender, logger: logger}
}

// SetJoystick records the latest joystick position.
func (s *TeleopService) SetJoystick(cmd JoystickCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joystick = cmd
}

// ResetJoystick recentres the joystick, as on releasing a drag.
func (s *TeleopService) ResetJoystick() {
	s.SetJoystick(JoystickCommand{})
}

// Joystick returns the current joystick position.
func (s *TeleopService) Joystick() JoystickCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joystick
}

// Velocity maps the joystick onto linear.x and angular.z for the periodic
// command publisher.
func (s *TeleopService) Velocity() (linear, angular float64) {
	j := s.Joystick()
	return j.Vertical, j.Horizontal
}

// SendPreset publishes the named preset once.
func (s *TeleopService) SendPreset(name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	if err := s.sender.SendVelocity(p.Linear, p.Angular); err != nil {
		return fmt.Errorf("failed to send preset %s: %w", name, err)
	}
	s.logger.Infof("Sent %s command (linear %.2f, angular %.2f)", name, p.Linear, p.Angular)
	return nil
}

// Presets lists the available presets by name.
func Presets() []Preset {
	list := make([]Preset, 0, len(presets))
	for _, p := range presets {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
