// Package jobs runs scheduled report snapshots: on a cron spec it renders
// the workbook and archives it to disk, so month-end state survives later
// edits to the records.
package jobs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MonthModePrevious = "previous"
	MonthModeCurrent  = "current"
	MonthModeAll      = "all"

	defaultSchedule = "0 6 1 * *"
	defaultDir      = "archive"
)

// Config is the jobs YAML file.
type Config struct {
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// SnapshotConfig drives the archive job. Month selects what the snapshot
// covers: the previous calendar month, the current one, or everything.
type SnapshotConfig struct {
	Schedule string `yaml:"schedule"`
	Dir      string `yaml:"dir"`
	Month    string `yaml:"month"`
}

// LoadConfig reads and validates the YAML config at path, applying defaults
// for omitted fields.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse jobs config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Snapshot.Schedule == "" {
		c.Snapshot.Schedule = defaultSchedule
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = defaultDir
	}
	if c.Snapshot.Month == "" {
		c.Snapshot.Month = MonthModePrevious
	}
}

// Validate collects every problem instead of stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	switch c.Snapshot.Month {
	case MonthModePrevious, MonthModeCurrent, MonthModeAll:
	default:
		problems = append(problems, fmt.Sprintf("snapshot.month must be %q, %q or %q, got %q",
			MonthModePrevious, MonthModeCurrent, MonthModeAll, c.Snapshot.Month))
	}
	if strings.TrimSpace(c.Snapshot.Dir) == "" {
		problems = append(problems, "snapshot.dir must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid jobs config: %s", strings.Join(problems, "; "))
	}
	return nil
}
