// Package config provides configuration management for ytfetch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytget/ytfetch/internal/logger"
)

// Transport backends.
const (
	BackendSocket = "socket"
	BackendClient = "client"
)

// Progress styles.
const (
	ProgressBar   = "bar"
	ProgressPlain = "plain"
	ProgressNone  = "none"
)

// DefaultUserAgent is sent by both backends unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/49.0.2623.87 Safari/537.36"

// DefaultPlayerBaseURL is where player scripts are served from.
const DefaultPlayerBaseURL = "https://s.ytimg.com/yts/jsbin/"

// Config represents the complete ytfetch configuration
type Config struct {
	Transport TransportConfig  `yaml:"transport"`
	Player    PlayerConfig     `yaml:"player"`
	Output    OutputConfig     `yaml:"output"`
	Logging   logger.LogConfig `yaml:"logging"`
}

// TransportConfig holds HTTP retrieval settings
type TransportConfig struct {
	Backend      string        `yaml:"backend"` // socket, client
	ChunkSize    int           `yaml:"chunk_size"`
	Timeout      time.Duration `yaml:"timeout"` // longest wait for a single read
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	UserAgent    string        `yaml:"user_agent"`
	VerifyTLS    bool          `yaml:"verify_tls"`
	Proxy        string        `yaml:"proxy"`      // socks5://host:port or http://host:port
	RateLimit    string        `yaml:"rate_limit"` // e.g. "512K", "2M"
}

// PlayerConfig holds player script settings
type PlayerConfig struct {
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // 0 disables the in-memory program cache
}

// OutputConfig holds output settings
type OutputConfig struct {
	Directory     string `yaml:"directory"`
	ProgressStyle string `yaml:"progress_style"` // bar, plain, none
	MinFreeSpace  string `yaml:"min_free_space"` // e.g. "100M"; empty disables the check
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Backend:      BackendSocket,
			ChunkSize:    128,
			Timeout:      30 * time.Second,
			DialTimeout:  5 * time.Second,
			MaxRedirects: 10,
			UserAgent:    DefaultUserAgent,
			VerifyTLS:    false,
		},
		Player: PlayerConfig{
			BaseURL:  DefaultPlayerBaseURL,
			CacheTTL: 10 * time.Minute,
		},
		Output: OutputConfig{
			ProgressStyle: ProgressBar,
		},
		Logging: *logger.DefaultLogConfig(),
	}
}

// ConfigPaths returns the list of config file paths in priority order
func ConfigPaths() []string {
	paths := make([]string, 0, 4)

	if envPath := os.Getenv("YTFETCH_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	paths = append(paths, "ytfetch.yaml", ".ytfetch.yaml")

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "ytfetch", "config.yaml"))
	}

	return paths
}

// Load loads configuration from the first available config file,
// then applies environment overrides.
func Load() (*Config, error) {
	config := DefaultConfig()

	for _, path := range ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := config.LoadFile(path); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}
			break
		}
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile loads configuration from a specific file on top of the current values
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides values from YTFETCH_* environment variables.
func (c *Config) ApplyEnv() {
	if backend := os.Getenv("YTFETCH_BACKEND"); backend != "" {
		c.Transport.Backend = strings.ToLower(backend)
	}
	if proxy := os.Getenv("YTFETCH_PROXY"); proxy != "" {
		c.Transport.Proxy = proxy
	}
	if limit := os.Getenv("YTFETCH_RATE_LIMIT"); limit != "" {
		c.Transport.RateLimit = limit
	}
	c.Logging.ApplyEnvironment()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Transport.Backend {
	case BackendSocket, BackendClient:
	default:
		return fmt.Errorf("invalid transport.backend %q (want %s or %s)", c.Transport.Backend, BackendSocket, BackendClient)
	}
	if c.Transport.ChunkSize <= 0 {
		return fmt.Errorf("transport.chunk_size must be positive")
	}
	if c.Transport.MaxRedirects < 0 {
		return fmt.Errorf("transport.max_redirects must be non-negative")
	}
	if _, err := ParseRate(c.Transport.RateLimit); err != nil {
		return fmt.Errorf("transport.rate_limit: %w", err)
	}
	if _, err := ParseRate(c.Output.MinFreeSpace); err != nil {
		return fmt.Errorf("output.min_free_space: %w", err)
	}
	switch c.Output.ProgressStyle {
	case ProgressBar, ProgressPlain, ProgressNone:
	default:
		return fmt.Errorf("invalid output.progress_style %q", c.Output.ProgressStyle)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// ParseRate parses a byte quantity such as "512K", "1.5M" or "100" (bytes).
// The empty string means zero, which disables the related limit.
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var value float64
	var unit string

	n, _ := fmt.Sscanf(s, "%f%s", &value, &unit)
	if n == 0 {
		return 0, fmt.Errorf("invalid rate format: %s", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative rate: %s", s)
	}

	multiplier := int64(1)
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSuffix(unit, "/s"), "ps")) {
	case "", "B":
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown rate unit: %s", unit)
	}

	return int64(value * float64(multiplier)), nil
}
