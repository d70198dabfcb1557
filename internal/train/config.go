package train

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls one Trainer.
type Config struct {
	// MaxEpochs is the number of training epochs Fit runs.
	MaxEpochs int `yaml:"max_epochs"`

	// DataParallel is the number of shards each training batch is
	// split into, each running TrainingStep on its own goroutine.
	// 0 or 1 disables splitting.
	DataParallel int `yaml:"data_parallel"`

	// CheckpointDir, when set, makes Fit write a checkpoint after
	// every epoch into a fresh run directory underneath it.
	CheckpointDir string `yaml:"checkpoint_dir"`

	// ResumeFrom, when set, restores model and optimizer state from
	// a checkpoint before the first epoch.
	ResumeFrom string `yaml:"resume_from"`

	// LogEvery is the batch interval between training progress log
	// lines. 0 logs only per epoch.
	LogEvery int `yaml:"log_every"`

	// Seed feeds run-level randomness (loader construction is seeded
	// separately by the module).
	Seed int64 `yaml:"seed"`
}

func (c Config) withDefaults() Config {
	if c.MaxEpochs == 0 {
		c.MaxEpochs = 1
	}
	return c
}

func (c Config) validate() error {
	if c.MaxEpochs < 0 {
		return fmt.Errorf("train: max_epochs %d", c.MaxEpochs)
	}
	if c.DataParallel < 0 {
		return fmt.Errorf("train: data_parallel %d", c.DataParallel)
	}
	if c.LogEvery < 0 {
		return fmt.Errorf("train: log_every %d", c.LogEvery)
	}
	return nil
}

// LoadConfig reads a YAML trainer configuration.
func LoadConfig(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("train: read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return Config{}, fmt.Errorf("train: parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
