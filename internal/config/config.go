package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix     = "TASKMAN"
	EnvConfigPath = "TASKMAN_CONFIG"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Log       LogConfig       `mapstructure:"log"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// RemoteConfig selects the task source. A non-empty File takes precedence
// over BaseURL.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	File    string        `mapstructure:"file"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type AnalyticsConfig struct {
	PostHogAPIKey string `mapstructure:"posthog_api_key"`
	Endpoint      string `mapstructure:"endpoint"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

func DefaultStorePath() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "taskman", "tasks.db")
}

// DefaultPath is the config file used when neither an explicit path nor
// TASKMAN_CONFIG is set.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "taskman", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix
// TASKMAN_. An explicit path wins over TASKMAN_CONFIG; a missing default
// config file is not an error but a missing explicit one is.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("remote.base_url", "https://jsonplaceholder.typicode.com/")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("remote.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("analytics.posthog_api_key", "")
	v.SetDefault("analytics.endpoint", "")
	v.SetDefault("metrics.textfile", "")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the %s driver", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.Store.Driver)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %s", c.Remote.Timeout)
	}
	return nil
}
