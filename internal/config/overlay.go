package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"jobsignal-engine/internal/sources"
)

type sourcesFile struct {
	Sources []sources.Entry `yaml:"sources"`
}

// OverlaySources merges a standalone sources.yml into the config, so ops can
// maintain the source registry separately from engine settings. Entries with
// a name already in the config replace that entry; new names append.
func OverlaySources(cfg *Config, sourcesPath string) error {
	b, err := os.ReadFile(sourcesPath)
	if err != nil {
		// Missing sources file should not kill startup
		return nil
	}

	var sf sourcesFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return err
	}

	byName := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		byName[s.Name] = i
	}
	for _, s := range sf.Sources {
		if i, ok := byName[s.Name]; ok {
			cfg.Sources[i] = s
			continue
		}
		cfg.Sources = append(cfg.Sources, s)
	}
	return nil
}
