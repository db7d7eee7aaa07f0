package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SavedDevice is one address the user has previously connected to,
// remembered so later invocations can refer to it by name instead of
// by MAC address.
type SavedDevice struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// ClientConfig is the persistent configuration for the CLI tool:
// connection parameters plus a small address book, grounded on
// config_persistence.go's ClientConfig/ConfigManager pair. The CLI
// subcommands read only SavedDevices (through ResolveDevice); the other
// fields are not used as flag defaults, and no subcommand saves the file.
type ClientConfig struct {
	Address       string        `json:"address"`
	SampleRate    int           `json:"sampleRate"`
	APIMode       string        `json:"apiMode"`
	Simulated     bool          `json:"simulated"`
	StatusPort    int           `json:"statusPort"`
	SavedDevices  []SavedDevice `json:"savedDevices,omitempty"`
}

// ConfigManager loads, saves and mutates a ClientConfig under a mutex,
// the same shape as config_persistence.go's ConfigManager.
type ConfigManager struct {
	configPath string
	mu         sync.RWMutex
	config     ClientConfig
}

// NewConfigManager builds a ConfigManager backed by configPath, seeded
// with default values until Load is called.
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}
}

func defaultConfig() ClientConfig {
	return ClientConfig{
		SampleRate: 1000,
		APIMode:    "SCIENTISST",
		Simulated:  false,
		StatusPort: 8190,
	}
}

// ConfigPath returns the default per-user config file location.
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(dir, "scientisst", "config.json"), nil
}

// Load reads the config file, leaving the in-memory defaults in place
// if it does not exist yet.
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, &cm.config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Save persists the current configuration to disk, creating its
// parent directory if needed.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(cm.configPath, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() ClientConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// Update applies mutate under the write lock and saves the result.
func (cm *ConfigManager) Update(mutate func(*ClientConfig)) error {
	cm.mu.Lock()
	mutate(&cm.config)
	cm.mu.Unlock()
	return cm.Save()
}

// RememberDevice adds or updates a named device in the address book.
func (cm *ConfigManager) RememberDevice(name, address string) error {
	return cm.Update(func(c *ClientConfig) {
		for i, d := range c.SavedDevices {
			if d.Name == name {
				c.SavedDevices[i].Address = address
				return
			}
		}
		c.SavedDevices = append(c.SavedDevices, SavedDevice{Name: name, Address: address})
	})
}

// ResolveDevice looks nameOrAddress up in the address book, falling
// back to treating it as a literal address if there is no match.
func (cm *ConfigManager) ResolveDevice(nameOrAddress string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, d := range cm.config.SavedDevices {
		if d.Name == nameOrAddress {
			return d.Address
		}
	}
	return nameOrAddress
}
