package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	for i := range cfg.Chains {
		c := &cfg.Chains[i]
		if c.ID == "" {
			return nil, fmt.Errorf("chain %d: missing id", i)
		}
		if c.Provider.URL == "" {
			return nil, fmt.Errorf("chain %s: missing provider url", c.ID)
		}
		if c.Provider.Name == "" {
			c.Provider.Name = c.ID
		}
		if c.Provider.Protocol == "" {
			c.Provider.Protocol = "http"
		}
		if c.Provider.Timeout == 0 {
			c.Provider.Timeout = Duration(30 * time.Second)
		}
	}

	return &cfg, nil
}
