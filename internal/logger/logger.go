package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level represents the logging level
type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// String returns the upper-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// MarshalJSON renders the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Component represents the logging component
type Component string

const (
	ComponentApp       Component = "app"
	ComponentTransport Component = "transport"
	ComponentPage      Component = "page"
	ComponentFormat    Component = "format"
	ComponentCipher    Component = "cipher"
	ComponentDownload  Component = "download"
)

// Components lists every known component in display order.
var Components = []Component{
	ComponentApp,
	ComponentTransport,
	ComponentPage,
	ComponentFormat,
	ComponentCipher,
	ComponentDownload,
}

// Format represents the log output format
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatColor
)

// Config holds logger configuration
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	Components map[Component]bool
	Timestamp  bool
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	components := make(map[Component]bool, len(Components))
	for _, c := range Components {
		components[c] = c == ComponentApp
	}
	return &Config{
		Level:      INFO,
		Format:     FormatText,
		Output:     os.Stderr,
		Components: components,
		Timestamp:  false,
	}
}

// Entry represents a single log entry
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component Component              `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// exitFunc terminates the process after a FATAL entry. Tests replace it.
var exitFunc = os.Exit

// Logger provides structured logging functionality
type Logger struct {
	config  *Config
	mu      sync.RWMutex
	writeMu sync.Mutex
}

// New creates a new logger instance
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Components == nil {
		config.Components = map[Component]bool{}
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}
	return &Logger{
		config: config,
	}
}

// WithComponent creates a new logger instance for a specific component
func (l *Logger) WithComponent(component Component) *ComponentLogger {
	return &ComponentLogger{
		logger:    l,
		component: component,
	}
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// EnableComponent enables logging for a specific component
func (l *Logger) EnableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Components[component] = true
}

// Enabled reports whether an entry of the given level and component would be written.
func (l *Logger) Enabled(level Level, component Component) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled(level, component)
}

func (l *Logger) enabled(level Level, component Component) bool {
	if level == FATAL {
		return true
	}
	return level >= l.config.Level && l.config.Components[component]
}

// log writes a log entry
func (l *Logger) log(level Level, component Component, message string, fields map[string]interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.enabled(level, component) {
		return
	}

	l.writeEntry(Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
		Fields:    fields,
	})
}

// writeEntry writes the log entry to output
func (l *Logger) writeEntry(entry Entry) {
	var output string

	switch l.config.Format {
	case FormatJSON:
		output = l.formatJSON(entry)
	case FormatColor:
		output = l.formatColor(entry)
	default:
		output = l.formatText(entry)
	}

	l.writeMu.Lock()
	fmt.Fprintln(l.config.Output, output)
	l.writeMu.Unlock()
}

// formatText formats entry as plain text
func (l *Logger) formatText(entry Entry) string {
	var parts []string

	if l.config.Timestamp {
		parts = append(parts, entry.Timestamp.Format("2006-01-02 15:04:05"))
	}

	parts = append(parts, fmt.Sprintf("[%s]", entry.Level))
	parts = append(parts, fmt.Sprintf("[%s]", entry.Component))
	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		var fieldParts []string
		for _, k := range sortedKeys(entry.Fields) {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		parts = append(parts, strings.Join(fieldParts, " "))
	}

	return strings.Join(parts, " ")
}

// formatJSON formats entry as JSON
func (l *Logger) formatJSON(entry Entry) string {
	data, _ := json.Marshal(entry)
	return string(data)
}

var (
	timeColor      = color.New(color.FgHiBlack)
	componentColor = color.New(color.FgCyan)
	keyColor       = color.New(color.FgYellow)
	valueColor     = color.New(color.FgGreen)
	levelColors    = map[Level]*color.Color{
		TRACE: color.New(color.FgWhite),
		DEBUG: color.New(color.FgHiBlue),
		INFO:  color.New(color.FgHiGreen),
		WARN:  color.New(color.FgHiYellow),
		ERROR: color.New(color.FgHiRed),
		FATAL: color.New(color.FgHiRed, color.Bold),
	}
)

// formatColor formats entry with colors
func (l *Logger) formatColor(entry Entry) string {
	var parts []string

	if l.config.Timestamp {
		parts = append(parts, timeColor.Sprint(entry.Timestamp.Format("2006-01-02 15:04:05")))
	}

	lc, ok := levelColors[entry.Level]
	if !ok {
		lc = color.New(color.Reset)
	}
	parts = append(parts, lc.Sprintf("[%s]", entry.Level))
	parts = append(parts, componentColor.Sprintf("[%s]", entry.Component))
	parts = append(parts, entry.Message)

	if len(entry.Fields) > 0 {
		var fieldParts []string
		for _, k := range sortedKeys(entry.Fields) {
			fieldParts = append(fieldParts, keyColor.Sprint(k)+"="+valueColor.Sprint(entry.Fields[k]))
		}
		parts = append(parts, strings.Join(fieldParts, " "))
	}

	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component Component
	fields    map[string]interface{}
}

// With returns a child logger that adds fields to every entry.
func (cl *ComponentLogger) With(fields map[string]interface{}) *ComponentLogger {
	merged := make(map[string]interface{}, len(cl.fields)+len(fields))
	for k, v := range cl.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ComponentLogger{logger: cl.logger, component: cl.component, fields: merged}
}

// Enabled reports whether the component logs at the given level.
func (cl *ComponentLogger) Enabled(level Level) bool {
	return cl.logger.Enabled(level, cl.component)
}

// Trace logs a trace message
func (cl *ComponentLogger) Trace(message string, fields ...map[string]interface{}) {
	cl.log(TRACE, message, fields...)
}

// Debug logs a debug message
func (cl *ComponentLogger) Debug(message string, fields ...map[string]interface{}) {
	cl.log(DEBUG, message, fields...)
}

// Info logs an info message
func (cl *ComponentLogger) Info(message string, fields ...map[string]interface{}) {
	cl.log(INFO, message, fields...)
}

// Warn logs a warning message
func (cl *ComponentLogger) Warn(message string, fields ...map[string]interface{}) {
	cl.log(WARN, message, fields...)
}

// Error logs an error message
func (cl *ComponentLogger) Error(message string, fields ...map[string]interface{}) {
	cl.log(ERROR, message, fields...)
}

// Fatal logs a message regardless of filters and terminates the process.
func (cl *ComponentLogger) Fatal(message string, fields ...map[string]interface{}) {
	cl.log(FATAL, message, fields...)
	exitFunc(1)
}

// log writes a log entry for the component
func (cl *ComponentLogger) log(level Level, message string, fields ...map[string]interface{}) {
	mergedFields := cl.fields
	if len(fields) > 0 && len(fields[0]) > 0 {
		mergedFields = make(map[string]interface{}, len(cl.fields)+len(fields[0]))
		for k, v := range cl.fields {
			mergedFields[k] = v
		}
		for k, v := range fields[0] {
			mergedFields[k] = v
		}
	}
	cl.logger.log(level, cl.component, message, mergedFields)
}

// Global logger instance
var (
	globalMu     sync.RWMutex
	globalLogger = New(DefaultConfig())
)

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithComponent returns a component logger from global logger
func WithComponent(component Component) *ComponentLogger {
	return GetGlobalLogger().WithComponent(component)
}
