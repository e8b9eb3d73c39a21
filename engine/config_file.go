package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadConfigFile reads a JSON config. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read engine config: %w", err)
	}
	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal engine config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// ApplyConfigFile loads path into the process-wide config store.
func ApplyConfigFile(path string) (Config, error) {
	config, err := LoadConfigFile(path)
	if err != nil {
		return Config{}, err
	}
	configStore.Update(config)
	return config, nil
}
