package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIURL is used when neither the config file nor TASKBOARD_API_URL set one
const DefaultAPIURL = "http://localhost:3000"

// Config holds application configuration
type Config struct {
	APIURL  string      `mapstructure:"api_url"`
	DataDir string      `mapstructure:"data_dir"`
	Theme   string      `mapstructure:"theme"`
	HTTP    HTTPConfig  `mapstructure:"http"`
	Log     LogConfig   `mapstructure:"log"`
	Tasks   TasksConfig `mapstructure:"tasks"`

	// path of the file the config was read from, empty for defaults only
	file string
}

// HTTPConfig configures the API client
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TasksConfig configures the tasks store
type TasksConfig struct {
	// AllowTimeOverwrite forwards edits of a task's total minutes to the
	// backend verbatim instead of converting them to additive time logs.
	AllowTimeOverwrite bool `mapstructure:"allow_time_overwrite"`
}

// DefaultDataDir returns the default data directory path
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}
	return filepath.Join(home, ".local", "share", "taskboard")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/taskboard/taskboard.yml
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".taskboard", "taskboard.yml")
		}
		if runtime.GOOS == "windows" {
			configHome = filepath.Join(home, "AppData", "Roaming")
		} else {
			configHome = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(configHome, "taskboard", "taskboard.yml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("theme", "nord")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("tasks.allow_time_overwrite", false)
}

// Load reads the config file at path (DefaultConfigPath when empty),
// writing one with default values if it does not exist yet. Environment
// variables prefixed with TASKBOARD_ override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.file = path

	return cfg, cfg.normalize()
}

// Default returns the configuration used when no file is available
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// decoding plain defaults cannot fail
	_ = v.Unmarshal(cfg)
	_ = cfg.normalize()
	return cfg
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api_url must start with http:// or https://, got %q", c.APIURL)
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "taskboard.log")
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	return nil
}

// File returns the path the config was loaded from
func (c *Config) File() string {
	return c.file
}

// DBPath returns the sqlite database path inside the data directory
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "taskboard.db")
}
