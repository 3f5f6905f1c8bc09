package app

import "remedy/internal/config"

// Config holds the application-level settings gathered from command-line
// flags, plus the loaded file configuration after bootstrap.
type Config struct {
	// Debug enables verbose logging across the application.
	Debug bool

	// Silent suppresses all log output.
	Silent bool

	// ConfigPath overrides the default configuration directory.
	ConfigPath string

	// RemedyConfig is populated by NewApplication after loading.
	RemedyConfig *config.Config
}

// NewConfig creates the application configuration from command-line flags.
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
