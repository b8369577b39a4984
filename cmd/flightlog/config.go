package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the decoder's configuration options; command-line
// flags override anything set here.
type fileConfig struct {
	FilePath        string   `yaml:"file_path"`
	NumWorkers      int      `yaml:"num_workers"`
	RunningMode     string   `yaml:"running_mode"`
	RoundFloats     bool     `yaml:"round_floats"`
	MessageFilter   []string `yaml:"message_filter"`
	CollectWarnings *bool    `yaml:"collect_warnings"`
	SpillDir        string   `yaml:"spill_dir"`
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
