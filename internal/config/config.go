package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from mend.yml.
type ProjectConfig struct {
	BatchSize       int      `yaml:"batchSize,omitempty"`
	LineWindow      int      `yaml:"lineWindow,omitempty"`
	BatchTimeout    string   `yaml:"batchTimeout,omitempty"`
	WorkerEndpoints []string `yaml:"workerEndpoints,omitempty"`
	GraphPath       string   `yaml:"graphPath,omitempty"`
	Verbose         bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read mend.yml or mend.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"mend.yml", "mend.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
