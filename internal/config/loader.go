package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"remedy/pkg/logging"
)

const (
	userConfigDir  = ".config/remedy"
	configFileName = "config.yaml"
)

// DefaultConfigPath returns the user config directory, or empty when the
// home directory cannot be determined.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from configPath/config.yaml layered over
// the defaults, then applies environment overrides. A missing file is not
// an error; a malformed one is.
func LoadConfig(configPath string) (Config, error) {
	config := GetDefaultConfig()

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	configFilePath := filepath.Join(configPath, configFileName)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			applyEnvOverrides(&config)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)

	applyEnvOverrides(&config)
	return config, nil
}

// applyEnvOverrides layers environment variables over the loaded config.
// These match the variables the deployment scripts already export.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("CLUSTER_NAME"); v != "" {
		config.Cluster = v
	}
	if v := os.Getenv("REMEDY_SERVER_URL"); v != "" {
		config.Agent.ServerURL = v
	}
	if v := os.Getenv("KUBECONFIG"); v != "" && config.Kubeconfig == "" {
		config.Kubeconfig = v
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		// CHECK_INTERVAL is in seconds for compatibility; a duration
		// string also works.
		if secs, err := strconv.Atoi(v); err == nil {
			config.Agent.Interval = Duration(time.Duration(secs) * time.Second)
		} else if d, err := time.ParseDuration(v); err == nil {
			config.Agent.Interval = Duration(d)
		} else {
			logging.Warn("ConfigLoader", "Ignoring invalid CHECK_INTERVAL %q", v)
		}
	}
}
