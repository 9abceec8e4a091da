package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/open-teleop/dashboard/pkg/config"
	customlog "github.com/open-teleop/dashboard/pkg/log"
)

// ConfigPublisher announces configuration changes to external consumers.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification() error
}

// GoalConfigService manages the operational goals file.
type GoalConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.GoalsConfig
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
}

type goalConfigService struct {
	goalsPath       string
	logger          customlog.Logger
	configPublisher ConfigPublisher
	currentConfig   *config.GoalsConfig
	usingDefaults   bool
	mu              sync.RWMutex
}

// NewGoalConfigService creates the service and loads goalsPath. A missing
// file is not an error: the built-in goals are served until one is written.
func NewGoalConfigService(goalsPath string, logger customlog.Logger) (GoalConfigService, error) {
	if goalsPath == "" {
		return nil, fmt.Errorf("goals configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	service := &goalConfigService{
		goalsPath: goalsPath,
		logger:    logger,
	}

	if err := service.LoadConfig(); err != nil {
		return nil, err
	}
	return service, nil
}

// LoadConfig reads the goals file from disk and replaces the current goals.
func (s *goalConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading goals from: %s", s.goalsPath)
	cfg, err := config.LoadGoalsConfig(s.goalsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warnf("Goals file '%s' not found, using built-in goals", s.goalsPath)
			s.currentConfig = config.DefaultGoalsConfig()
			s.usingDefaults = true
			return nil
		}
		s.logger.Errorf("Error loading goals file '%s': %v", s.goalsPath, err)
		return fmt.Errorf("error loading goals file '%s': %w", s.goalsPath, err)
	}

	s.currentConfig = cfg
	s.usingDefaults = false
	s.logger.Infof("Loaded %d goals, config ID: %s, version: %s", len(cfg.Goals), cfg.ConfigID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the active goals. Callers must not modify it.
func (s *goalConfigService) GetCurrentConfig() *config.GoalsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the goals file as stored on disk, or the
// built-in goals rendered as YAML when there is no file yet.
func (s *goalConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.goalsPath
	defaults := s.usingDefaults
	current := s.currentConfig
	s.mu.RUnlock()

	if defaults {
		data, err := yaml.Marshal(current)
		if err != nil {
			return nil, fmt.Errorf("error encoding built-in goals: %w", err)
		}
		return data, nil
	}

	s.logger.Debugf("Reading raw goals YAML from: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading goals file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates newConfigYAML, persists it and makes it active.
// Nothing changes if validation or the write fails.
func (s *goalConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCfg, err := config.ParseGoalsConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Rejected goals update: %v", err)
		return err
	}
	if len(newCfg.Goals) == 0 {
		return fmt.Errorf("validation failed: goals list is empty")
	}

	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	oldID := "N/A"
	if s.currentConfig != nil {
		oldID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	s.usingDefaults = false
	s.logger.Infof("Updated goals. ID %s -> %s, %d goals", oldID, newCfg.ConfigID, len(newCfg.Goals))

	if s.configPublisher != nil {
		go func(publisher ConfigPublisher) {
			if err := publisher.PublishConfigUpdatedNotification(); err != nil {
				s.logger.Warnf("Failed to publish goals update notification: %v", err)
			}
		}(s.configPublisher)
	}
	return nil
}

// PersistConfig writes yamlData to the goals file without applying it.
func (s *goalConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

// persistConfigUnlocked assumes the caller holds the lock.
func (s *goalConfigService) persistConfigUnlocked(yamlData []byte) error {
	if err := os.WriteFile(s.goalsPath, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing goals file '%s': %v", s.goalsPath, err)
		return fmt.Errorf("error writing goals file '%s': %w", s.goalsPath, err)
	}
	s.logger.Infof("Persisted goals to %s", s.goalsPath)
	return nil
}

// SetPublisher injects the change notifier after construction.
func (s *goalConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}
