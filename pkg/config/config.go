// Package config provides a reusable loader for terab client configuration
// files and environment variables, in the style of the ambient config
// layer carried by the rest of the example stack this client's idiom is
// drawn from.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/Lokad/Terab/pkg/utils"
)

// Config is the unified configuration for a terab client deployment: which
// server to dial, how aggressively to time out, and how to log. It mirrors
// the structure of a YAML file under config/.
type Config struct {
	Client struct {
		ConnectionString string        `mapstructure:"connection_string" json:"connection_string"`
		DialTimeout       time.Duration `mapstructure:"dial_timeout" json:"dial_timeout"`
		KeepAlive         time.Duration `mapstructure:"keep_alive" json:"keep_alive"`
	} `mapstructure:"client" json:"client"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Addr    string `mapstructure:"addr" json:"addr"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func defaults() {
	viper.SetDefault("client.connection_string", "127.0.0.1:8338")
	viper.SetDefault("client.dial_timeout", 5*time.Second)
	viper.SetDefault("client.keep_alive", 30*time.Second)
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9338")
	viper.SetDefault("logging.level", "info")
}

// Load reads configuration files and merges any environment-specific
// overrides, then stores and returns the result in AppConfig. If env is
// empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	defaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, utils.Wrap(err, "merge "+env+" config")
			}
		}
	}

	viper.SetEnvPrefix("TERAB")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the TERAB_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("TERAB_ENV", ""))
}
