package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the serving process.
// Tags use mapstructure for Viper unmarshalling and env binding.
type ServerConfig struct {
	ListenAddr      string `mapstructure:"LISTEN_ADDR"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OAuthConfigPath string `mapstructure:"OAUTH_CONFIG_PATH"`
	SigningKeyPath  string `mapstructure:"SIGNING_KEY_PATH"`
	StateTTLSec     int    `mapstructure:"STATE_TTL_SEC"`
	LeewaySec       int    `mapstructure:"JWT_LEEWAY_SEC"`
}

// LoadServerConfig reads process configuration from file, environment
// variables, and defaults.
func LoadServerConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/console-auth/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("LISTEN_ADDR", "127.0.0.1:8443")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OAUTH_CONFIG_PATH", "/var/lib/console-auth/oauth_config.json")
	v.SetDefault("SIGNING_KEY_PATH", "/var/lib/console-auth/keys/jwt_signing_key.json")
	v.SetDefault("STATE_TTL_SEC", 300)
	v.SetDefault("JWT_LEEWAY_SEC", 0)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
