// Package config loads the analyzer tuning parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/recoil.report/internal/units"
)

// TuningConfig represents the analyzer tuning parameters. Fields are
// pointers so that partial JSON files override only what they mention;
// the Get* methods supply defaults for everything else.
type TuningConfig struct {
	// Coincidence queue params
	CoincidenceWindow *string `json:"coincidence_window,omitempty"` // duration string like "10us"
	MaxBufferedSpan   *string `json:"max_buffered_span,omitempty"`  // duration string like "1s"
	MaxBufferedEvents *int    `json:"max_buffered_events,omitempty"`
	FlushDeadline     *string `json:"flush_deadline,omitempty"` // duration string like "30s"

	// Timestamp clock rate of the FPGA trigger counters, in Hz.
	ClockHz *float64 `json:"clock_hz,omitempty"`

	// Driver params
	DatabasePath  *string `json:"database_path,omitempty"`
	VariablesPath *string `json:"variables_path,omitempty"`
}

// Defaults.
const (
	DefaultCoincidenceWindow = 10 * time.Microsecond
	DefaultMaxBufferedSpan   = time.Second
	DefaultFlushDeadline     = 30 * time.Second
	DefaultMaxBufferedEvents = 1 << 20
	DefaultDatabasePath      = "recoil_events.db"
)

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are parseable and sane.
func (c *TuningConfig) Validate() error {
	for name, field := range map[string]*string{
		"coincidence_window": c.CoincidenceWindow,
		"max_buffered_span":  c.MaxBufferedSpan,
		"flush_deadline":     c.FlushDeadline,
	} {
		if field == nil || *field == "" {
			continue
		}
		d, err := time.ParseDuration(*field)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *field, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, d)
		}
	}
	if c.ClockHz != nil && *c.ClockHz <= 0 {
		return fmt.Errorf("clock_hz must be positive, got %v", *c.ClockHz)
	}
	if c.MaxBufferedEvents != nil && *c.MaxBufferedEvents < 1 {
		return fmt.Errorf("max_buffered_events must be at least 1, got %d", *c.MaxBufferedEvents)
	}
	return nil
}

func (c *TuningConfig) duration(field *string, fallback time.Duration) time.Duration {
	if field == nil || *field == "" {
		return fallback
	}
	d, err := time.ParseDuration(*field)
	if err != nil {
		return fallback
	}
	return d
}

// GetClockHz returns the trigger-timestamp clock rate.
func (c *TuningConfig) GetClockHz() float64 {
	if c.ClockHz != nil {
		return *c.ClockHz
	}
	return units.DefaultClockHz
}

// GetCoincidenceWindowTicks returns the coincidence window in ticks.
func (c *TuningConfig) GetCoincidenceWindowTicks() uint64 {
	return units.DurationToTicks(c.duration(c.CoincidenceWindow, DefaultCoincidenceWindow), c.GetClockHz())
}

// GetMaxBufferedSpanTicks returns the drain span in ticks.
func (c *TuningConfig) GetMaxBufferedSpanTicks() uint64 {
	return units.DurationToTicks(c.duration(c.MaxBufferedSpan, DefaultMaxBufferedSpan), c.GetClockHz())
}

// GetFlushDeadline returns the wall-clock flush budget.
func (c *TuningConfig) GetFlushDeadline() time.Duration {
	return c.duration(c.FlushDeadline, DefaultFlushDeadline)
}

// GetMaxBufferedEvents returns the queue buffer cap.
func (c *TuningConfig) GetMaxBufferedEvents() int {
	if c.MaxBufferedEvents != nil {
		return *c.MaxBufferedEvents
	}
	return DefaultMaxBufferedEvents
}

// GetDatabasePath returns where the records database lives.
func (c *TuningConfig) GetDatabasePath() string {
	if c.DatabasePath != nil {
		return *c.DatabasePath
	}
	return DefaultDatabasePath
}

// GetVariablesPath returns the variables file path, empty when unset
// (identity calibration).
func (c *TuningConfig) GetVariablesPath() string {
	if c.VariablesPath != nil {
		return *c.VariablesPath
	}
	return ""
}
