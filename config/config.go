package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iamNilotpal/commitlog/internal/core/domain"
	defaults "github.com/iamNilotpal/commitlog/internal/core/domain/config"
)

type Config struct {
	CommitLog     CommitLogConfig `yaml:"commit_log"`
	CDC           CDCConfig       `yaml:"cdc"`
	EnableMetrics bool            `yaml:"enable_metrics"` // Enable metrics collection
}

// Holds commit-log-specific configuration
type CommitLogConfig struct {
	Directory     string `yaml:"directory"`      // Path to segment files
	SegmentPrefix string `yaml:"segment_prefix"` // Segment file name prefix
	SegmentSize   int64  `yaml:"segment_size"`   // Nominal segment size in bytes
}

// Holds CDC retention configuration
type CDCConfig struct {
	Enabled           bool          `yaml:"enabled"`             // Track CDC mutations
	Directory         string        `yaml:"directory"`           // Path to CDC shadow/index files
	BlockWrites       bool          `yaml:"block_writes"`        // Reject (true) vs evict-oldest (false) on overflow
	TotalSpace        int64         `yaml:"total_space"`         // CDC disk budget in bytes
	DiskCheckInterval time.Duration `yaml:"disk_check_interval"` // Minimum gap between directory walks
}

// Returns a Config struct with reasonable default values.
func DefaultConfig() *Config {
	return &Config{
		EnableMetrics: true,
		CommitLog: CommitLogConfig{
			Directory:     "/var/lib/commitlog",
			SegmentPrefix: defaults.DefaultSegmentPrefix,
			SegmentSize:   defaults.DefaultMaxSegmentSize,
		},
		CDC: CDCConfig{
			Enabled:           true,
			BlockWrites:       true,
			Directory:         "/var/lib/commitlog/cdc_raw",
			TotalSpace:        defaults.DefaultCDCTotalSpace,
			DiskCheckInterval: defaults.DefaultCDCDiskCheckInterval,
		},
	}
}

// Loads configuration from a YAML file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Options maps the file configuration onto the manager's option types.
func (c *Config) Options() *domain.Options {
	return &domain.Options{
		Directory:     c.CommitLog.Directory,
		EnableMetrics: c.EnableMetrics,
		SegmentOptions: &domain.SegmentOptions{
			Prefix:         c.CommitLog.SegmentPrefix,
			MaxSegmentSize: c.CommitLog.SegmentSize,
		},
		CDCOptions: &domain.CDCOptions{
			Enabled:           c.CDC.Enabled,
			Directory:         c.CDC.Directory,
			BlockWrites:       c.CDC.BlockWrites,
			TotalSpace:        c.CDC.TotalSpace,
			DiskCheckInterval: c.CDC.DiskCheckInterval,
		},
	}
}

func validateConfig(config *Config) error {
	if config.CommitLog.Directory == "" {
		return fmt.Errorf("commit_log.directory is required")
	}

	if config.CommitLog.SegmentSize < defaults.MinSegmentSize {
		return fmt.Errorf("commit_log.segment_size must be at least %d bytes", defaults.MinSegmentSize)
	}

	if config.CDC.Enabled {
		if config.CDC.Directory == "" {
			return fmt.Errorf("cdc.directory is required when cdc is enabled")
		}
		if config.CDC.TotalSpace < 0 {
			return fmt.Errorf("cdc.total_space cannot be negative")
		}
		if config.CDC.DiskCheckInterval <= 0 {
			return fmt.Errorf("cdc.disk_check_interval must be positive")
		}
	}

	return nil
}
