package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig describes one command an action type runs.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of actions.yaml.
type ConfigFile struct {
	Actions []ProcessConfig `yaml:"actions" json:"actions"`
}

// LoadCommands reads a configuration file (YAML or JSON) and returns the
// commands keyed by action type. A missing file yields an empty map.
func LoadCommands(path string) (map[string]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ProcessConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read actions config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	commands := make(map[string]ProcessConfig)
	for _, c := range cfg.Actions {
		if c.Name == "" {
			continue
		}
		if c.Command == "" {
			return nil, fmt.Errorf("action %q has no command", c.Name)
		}
		commands[c.Name] = c
	}
	return commands, nil
}
