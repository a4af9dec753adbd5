package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Download DownloadConfig `yaml:"download"`
	Log      LogConfig      `yaml:"log"`
}

// BrowserConfig holds headless browser configuration. Stealth-related
// flags live here so the allocator is configured at construction,
// never through process-wide side effects.
type BrowserConfig struct {
	ExecPath       string        `yaml:"exec_path" envconfig:"TOKGRAB_BROWSER_PATH"`
	Headless       bool          `yaml:"headless" envconfig:"TOKGRAB_BROWSER_HEADLESS"`
	Stealth        bool          `yaml:"stealth" envconfig:"TOKGRAB_BROWSER_STEALTH"`
	WindowWidth    int           `yaml:"window_width" envconfig:"TOKGRAB_BROWSER_WINDOW_WIDTH"`
	WindowHeight   int           `yaml:"window_height" envconfig:"TOKGRAB_BROWSER_WINDOW_HEIGHT"`
	NavTimeout     time.Duration `yaml:"nav_timeout" envconfig:"TOKGRAB_BROWSER_NAV_TIMEOUT"`
	ElementTimeout time.Duration `yaml:"element_timeout" envconfig:"TOKGRAB_BROWSER_ELEMENT_TIMEOUT"`
	UserAgent      string        `yaml:"user_agent" envconfig:"TOKGRAB_BROWSER_USER_AGENT"`
}

// DownloadConfig holds media download configuration.
type DownloadConfig struct {
	ProbeTimeout  time.Duration `yaml:"probe_timeout" envconfig:"TOKGRAB_DOWNLOAD_PROBE_TIMEOUT"`
	HeaderTimeout time.Duration `yaml:"header_timeout" envconfig:"TOKGRAB_DOWNLOAD_HEADER_TIMEOUT"`
	BufferSize    int           `yaml:"buffer_size" envconfig:"TOKGRAB_DOWNLOAD_BUFFER_SIZE"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"TOKGRAB_LOG_LEVEL"`
}

// DefaultConfig returns the configuration defaults. Defaults are
// applied here, before file and environment overrides, rather than
// through envconfig default tags: envconfig applies default tags
// whenever the variable is absent, which would clobber values loaded
// from the YAML file.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			Stealth:        true,
			WindowWidth:    1920,
			WindowHeight:   1080,
			NavTimeout:     45 * time.Second,
			ElementTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Download: DownloadConfig{
			ProbeTimeout:  15 * time.Second,
			HeaderTimeout: 30 * time.Second,
			BufferSize:    128 * 1024,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration, layering defaults, then the YAML file,
// then environment variables; later layers override earlier ones.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Browser.NavTimeout <= 0 {
		return fmt.Errorf("browser nav_timeout must be positive")
	}
	if c.Browser.ElementTimeout <= 0 {
		return fmt.Errorf("browser element_timeout must be positive")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window size must be positive")
	}
	if c.Download.HeaderTimeout <= 0 {
		return fmt.Errorf("download header_timeout must be positive")
	}
	if c.Download.BufferSize <= 0 {
		return fmt.Errorf("download buffer_size must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
