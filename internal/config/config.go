// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values come from (in
// order of precedence) explicit setters, environment variables, the config
// file, and the defaults registered in SetDefaults.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to console colors.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the Chrome/Chromium process is launched and
// attached to.
type BrowserConfig struct {
	// ExecutablePath overrides executable discovery. Empty means "search the
	// usual install locations".
	ExecutablePath string `mapstructure:"executable_path" yaml:"executable_path"`
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	// UserDataDir is the profile directory. Empty means a fresh temporary
	// profile per launch, removed on close.
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	// Args are extra command-line switches appended after the defaults.
	Args []string `mapstructure:"args" yaml:"args"`
	// RemoteURL attaches to an already-running browser's DevTools endpoint
	// instead of launching one. Accepts ws:// or http:// forms.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// LaunchTimeout bounds process start plus websocket discovery.
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// EngineConfig controls the actionability engine: deadlines and polling
// cadence. The protocol's real thresholds are deliberately configuration, not
// constants.
type EngineConfig struct {
	// DefaultTimeout applies to every action without an explicit override.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// DefaultNavigationTimeout applies to Goto and load-state waits.
	DefaultNavigationTimeout time.Duration `mapstructure:"default_navigation_timeout" yaml:"default_navigation_timeout"`
	// PollInterval is the sleep between actionability probe ticks.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// SlowMo inserts a pause after every performed action, for debugging.
	SlowMo time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
}

// SetDefaults registers every default on the given viper instance. Call this
// before ReadInConfig so file and env values override cleanly.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "actuate")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.launch_timeout", 30*time.Second)

	v.SetDefault("engine.default_timeout", 30*time.Second)
	v.SetDefault("engine.default_navigation_timeout", 30*time.Second)
	v.SetDefault("engine.poll_interval", 100*time.Millisecond)
}

// DefaultConfigDir returns the per-user configuration directory
// (~/.config/actuate), used when no explicit --config path is given.
func DefaultConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "actuate"), nil
}

// Load unmarshals the viper state into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive, got %v", c.Engine.PollInterval)
	}
	if c.Engine.DefaultTimeout < 0 {
		return fmt.Errorf("engine.default_timeout must not be negative, got %v", c.Engine.DefaultTimeout)
	}
	if c.Engine.DefaultNavigationTimeout < 0 {
		return fmt.Errorf("engine.default_navigation_timeout must not be negative, got %v", c.Engine.DefaultNavigationTimeout)
	}
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be positive, got %v", c.Browser.LaunchTimeout)
	}
	switch c.Logger.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	return nil
}

// Default returns the built-in configuration without touching files or the
// environment. Library consumers who never go through the CLI start here.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults failing validation is a programming error.
		panic(err)
	}
	return cfg
}
