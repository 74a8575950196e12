package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"jobsignal-engine/internal/sources"
)

type Config struct {
	App struct {
		Port      int    `yaml:"port"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"` // console | json
	} `yaml:"app"`

	Intake struct {
		SpoolDir string `yaml:"spool_dir"` // NDJSON observation batches dropped by collaborators
		MacroDir string `yaml:"macro_dir"` // NDJSON macro-evidence batches
	} `yaml:"intake"`

	Lifecycle struct {
		StalenessDays int `yaml:"staleness_days"`
	} `yaml:"lifecycle"`

	Review struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"review"`

	Aggregation struct {
		WindowDays      int     `yaml:"window_days"`
		MaxParallelKeys int     `yaml:"max_parallel_keys"`
		UpsertsPerSec   float64 `yaml:"upserts_per_sec"`
	} `yaml:"aggregation"`

	Schedules struct {
		Ingest    string `yaml:"ingest"`
		Sweep     string `yaml:"sweep"`
		Aggregate string `yaml:"aggregate"`
	} `yaml:"schedules"`

	Sources []sources.Entry `yaml:"sources"`

	Taxonomy struct {
		RulesPath string `yaml:"rules_path"` // optional YAML override of the built-in rule tables
	} `yaml:"taxonomy"`

	Metros map[string]string `yaml:"metros"` // extra alias -> metro label
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38490
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "console"
	}
	if cfg.Lifecycle.StalenessDays == 0 {
		cfg.Lifecycle.StalenessDays = 7
	}
	if cfg.Review.Threshold == 0 {
		cfg.Review.Threshold = 0.7
	}
	if cfg.Aggregation.WindowDays == 0 {
		cfg.Aggregation.WindowDays = 90
	}
	if cfg.Aggregation.MaxParallelKeys == 0 {
		cfg.Aggregation.MaxParallelKeys = 4
	}
	if cfg.Aggregation.UpsertsPerSec == 0 {
		cfg.Aggregation.UpsertsPerSec = 50
	}
	if cfg.Schedules.Ingest == "" {
		cfg.Schedules.Ingest = "@every 15m"
	}
	if cfg.Schedules.Sweep == "" {
		cfg.Schedules.Sweep = "@every 6h"
	}
	if cfg.Schedules.Aggregate == "" {
		cfg.Schedules.Aggregate = "@every 1h"
	}
}
