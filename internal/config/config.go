// Package config loads the YAML file that describes the BMC targets
// ipmictl operates against, patterned on the IPMI-over-LAN discovery
// configs used elsewhere in this stack.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Target is a single BMC a command can address by name instead of
// repeating --address/--user/--pass on every invocation.
type Target struct {
	Name          string        `yaml:"name"`
	Address       string        `yaml:"address"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	PrivilegeName string        `yaml:"privilege"` // "callback", "user", "operator", "administrator"
	CipherSuiteID uint          `yaml:"cipher_suite_id"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	Retries       uint          `yaml:"retries"`
	AutoReconnect bool          `yaml:"auto_reconnect"`
}

// Config is the top level of an ipmictl targets file.
type Config struct {
	Targets []Target `yaml:"targets"`
}

// Load reads and parses the YAML file at path. Missing optional fields
// are left at their zero value; Arguments.setDefault fills in the
// client-level defaults once a Target becomes client.Arguments.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	seen := make(map[string]bool, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("config %s: target with empty name", path)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("config %s: duplicate target name %q", path, t.Name)
		}
		seen[t.Name] = true
		if t.Address == "" {
			return nil, fmt.Errorf("config %s: target %q is missing address", path, t.Name)
		}
	}

	return cfg, nil
}

// Find returns the named target, or false if it is not present.
func (c *Config) Find(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}
