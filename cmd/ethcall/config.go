package main

import (
	"fmt"
	"os"

	"github.com/branched-services/go-ethcall"
	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML file accepted by --config. Command-line flags take
// precedence over its values.
type fileConfig struct {
	RPC      string             `yaml:"rpc"`
	ABI      string             `yaml:"abi"`
	Address  string             `yaml:"address"`
	From     string             `yaml:"from"`
	LogLevel string             `yaml:"logLevel"`
	Tracking ethcall.FileConfig `yaml:"tracking"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// trackingConfig returns the tracking configuration, keeping the library
// defaults when the file has no tracking section.
func (c fileConfig) trackingConfig() (ethcall.Config, error) {
	if c.Tracking == (ethcall.FileConfig{}) {
		return ethcall.DefaultConfig(), nil
	}
	return c.Tracking.Config()
}
