package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LogConfig is the serializable form of Config, embedded in the application config file.
type LogConfig struct {
	Level      string          `yaml:"level"`
	Format     string          `yaml:"format"`
	Output     string          `yaml:"output"`
	Components map[string]bool `yaml:"components,omitempty"`
	Timestamp  bool            `yaml:"timestamp"`
}

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *LogConfig {
	components := make(map[string]bool, len(Components))
	for _, c := range Components {
		components[string(c)] = c == ComponentApp
	}
	return &LogConfig{
		Level:      "INFO",
		Format:     "text",
		Output:     "stderr",
		Components: components,
	}
}

// ToLoggerConfig converts LogConfig to logger.Config
func (c *LogConfig) ToLoggerConfig() (*Config, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}

	format, err := parseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("parse format: %w", err)
	}

	output, err := parseOutput(c.Output)
	if err != nil {
		return nil, fmt.Errorf("parse output: %w", err)
	}

	components := make(map[Component]bool)
	for name, enabled := range c.Components {
		if strings.EqualFold(name, "all") {
			for _, comp := range Components {
				components[comp] = enabled
			}
			continue
		}
		components[Component(strings.ToLower(name))] = enabled
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		Components: components,
		Timestamp:  c.Timestamp,
	}, nil
}

// parseLevel parses level string to Level enum
func parseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("unknown level: %s", levelStr)
	}
}

// parseFormat parses format string to Format enum
func parseFormat(formatStr string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(formatStr)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "color", "colored":
		return FormatColor, nil
	default:
		return FormatText, fmt.Errorf("unknown format: %s", formatStr)
	}
}

// parseOutput parses output string to io.Writer
func parseOutput(outputStr string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(outputStr)) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	case "null", "none":
		return io.Discard, nil
	}
	if strings.HasPrefix(outputStr, "file:") {
		filePath := strings.TrimPrefix(outputStr, "file:")
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return file, nil
	}
	return nil, fmt.Errorf("unknown output: %s", outputStr)
}

// CreateLoggerFromConfig creates a logger from LogConfig
func CreateLoggerFromConfig(config *LogConfig) (*Logger, error) {
	loggerConfig, err := config.ToLoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	return New(loggerConfig), nil
}

// ApplyEnvironment overrides c with YTFETCH_LOG_* variables.
func (c *LogConfig) ApplyEnvironment() {
	if level := os.Getenv("YTFETCH_LOG_LEVEL"); level != "" {
		c.Level = level
	}
	if format := os.Getenv("YTFETCH_LOG_FORMAT"); format != "" {
		c.Format = format
	}
	if output := os.Getenv("YTFETCH_LOG_OUTPUT"); output != "" {
		c.Output = output
	}
	if timestamp := os.Getenv("YTFETCH_LOG_TIMESTAMP"); timestamp != "" {
		c.Timestamp = timestamp == "true" || timestamp == "1"
	}
	if components := os.Getenv("YTFETCH_LOG_COMPONENTS"); components != "" {
		c.Components = make(map[string]bool)
		for _, comp := range strings.Split(components, ",") {
			comp = strings.TrimSpace(comp)
			if comp != "" {
				c.Components[comp] = true
			}
		}
	}
}

// Validate checks that every field can be converted.
func (c *LogConfig) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if _, err := parseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	switch out := strings.ToLower(c.Output); {
	case out == "stdout", out == "stderr", out == "null", out == "none", out == "":
	case strings.HasPrefix(c.Output, "file:") && len(c.Output) > len("file:"):
	default:
		return fmt.Errorf("invalid output: %s", c.Output)
	}
	return nil
}
