package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	AppDir   = "voxcapture"
	FileName = "location.yaml"
)

// ErrSettingsIO is returned when the settings file cannot be read or written
var ErrSettingsIO = errors.New("settings io error")

// LocationSettings is the user's saved location. The whole record is
// replaced on every save.
type LocationSettings struct {
	Location string  `yaml:"location" json:"location"`
	Country  *string `yaml:"country,omitempty" json:"country,omitempty"`
}

// DefaultPath returns <user config dir>/voxcapture/location.yaml
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve config directory: %w", ErrSettingsIO, err)
	}
	return filepath.Join(dir, AppDir, FileName), nil
}

// Store persists LocationSettings as a YAML file
type Store struct {
	Path string
}

// NewStore creates a store backed by the given file
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the saved settings, or nil when nothing was saved yet
func (s *Store) Load() (*LocationSettings, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrSettingsIO, s.Path, err)
	}

	var loc LocationSettings
	if err := yaml.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrSettingsIO, s.Path, err)
	}
	return &loc, nil
}

// Save overwrites the settings file, creating its directory if needed
func (s *Store) Save(loc LocationSettings) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("%w: failed to create settings directory: %w", ErrSettingsIO, err)
	}

	data, err := yaml.Marshal(&loc)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal settings: %w", ErrSettingsIO, err)
	}

	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", ErrSettingsIO, s.Path, err)
	}
	return nil
}
