package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. SIZING_PORT.
const EnvPrefix = "SIZING"

// ServerSettings are the HTTP server's runtime parameters.
type ServerSettings struct {
	Port               string        `mapstructure:"port"`
	Env                string        `mapstructure:"env"`
	Workers            int           `mapstructure:"workers"`
	MaxCombinations    int           `mapstructure:"max_combinations"`
	CombinationTimeout time.Duration `mapstructure:"combination_timeout"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
}

// IsProduction reports whether the server runs with production defaults.
func (s ServerSettings) IsProduction() bool { return s.Env == "production" }

// Logging converts the log settings for NewLogger.
func (s ServerSettings) Logging() LoggingConfig {
	return LoggingConfig{Level: s.LogLevel, Format: s.LogFormat}
}

// LoadServerSettings reads optional YAML at path (empty = none) and SIZING_* environment
// overrides on top of the defaults.
func LoadServerSettings(path string) (ServerSettings, error) {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("env", "development")
	v.SetDefault("workers", 1)
	v.SetDefault("max_combinations", 0)
	v.SetDefault("combination_timeout", "0s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return ServerSettings{}, fmt.Errorf("error reading server config file, %w", err)
		}
	}

	var s ServerSettings
	if err := v.Unmarshal(&s); err != nil {
		return ServerSettings{}, fmt.Errorf("unable to decode server settings, %w", err)
	}
	// Comma separated lists from the environment arrive as one element.
	if len(s.AllowedOrigins) == 1 && strings.Contains(s.AllowedOrigins[0], ",") {
		s.AllowedOrigins = strings.Split(s.AllowedOrigins[0], ",")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return ServerSettings{}, err
	}
	return s, nil
}
