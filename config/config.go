package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// OSCConfig configures the OSC sync surface
type OSCConfig struct {
	Enabled bool     `json:"enabled"`
	Host    string   `json:"host,omitempty"`
	Slaves  []string `json:"slaves,omitempty"` // static host:port slave addresses
}

// Config is the main configuration structure
type Config struct {
	Tempo     float64   `json:"tempo"`
	MIDIPorts []string  `json:"midiPorts,omitempty"` // output ports to clock
	OSC       OSCConfig `json:"osc,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo: 120,
		OSC: OSCConfig{
			Host: "0.0.0.0",
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pulse"), nil
}

// Path returns the full path to config.json
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Tempo <= 0 {
		cfg.Tempo = 120
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddMIDIPort records a port selection, keeping the list free of duplicates
func (c *Config) AddMIDIPort(name string) {
	for _, p := range c.MIDIPorts {
		if p == name {
			return
		}
	}
	c.MIDIPorts = append(c.MIDIPorts, name)
}

// RemoveMIDIPort drops a port selection
func (c *Config) RemoveMIDIPort(name string) {
	for i, p := range c.MIDIPorts {
		if p == name {
			c.MIDIPorts = append(c.MIDIPorts[:i], c.MIDIPorts[i+1:]...)
			return
		}
	}
}

// HasMIDIPort reports whether a port is selected
func (c *Config) HasMIDIPort(name string) bool {
	for _, p := range c.MIDIPorts {
		if p == name {
			return true
		}
	}
	return false
}
