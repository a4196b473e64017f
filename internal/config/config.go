// Package config persists the preferred capture device across restarts.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/geraschenko/whisper-transcribe/internal/device"
)

// FileName is the preference record's name inside the daemon work directory.
const FileName = "config.json"

// record is the on-disk shape of the preference file.
type record struct {
	PreferredDeviceID int `json:"preferred_device_id"`
}

// Store reads and writes the preference record at one path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore binds a store to a record path.
func NewStore(path string, logger *slog.Logger) Store {
	return Store{path: path, logger: logger}
}

// Path returns the bound record location.
func (s Store) Path() string {
	return s.path
}

// Load returns the stored preference. A missing record means no preference
// (device.Default); an unreadable or corrupt record is logged and degrades
// to device.Default rather than failing startup.
func (s Store) Load() device.ID {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("could not load config", "path", s.path, "error", err.Error())
		}
		return device.Default
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("could not parse config", "path", s.path, "error", err.Error())
		return device.Default
	}
	return device.ID(rec.PreferredDeviceID)
}

// Save writes the preference record. Failures are returned for the caller
// to log; a failed save never aborts the session.
func (s Store) Save(id device.ID) error {
	data, err := json.MarshalIndent(record{PreferredDeviceID: int(id)}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", s.path, err)
	}
	return nil
}
