package hwpx

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel orders message severities; messages below the logger's level
// are dropped.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

var logLevelNames = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogWarn:  "WARN",
	LogError: "ERROR",
	LogOff:   "OFF",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func parseLogLevel(levelStr string) LogLevel {
	for level, name := range logLevelNames {
		if strings.EqualFold(levelStr, name) {
			return level
		}
	}
	return LogInfo
}

// Fields carries structured key/value context appended to each line.
type Fields map[string]any

// Logger writes timestamped leveled lines. Loggers derived with
// WithField/WithFields share the parent's writer and write lock, so a
// family of loggers may be used from multiple goroutines.
type Logger struct {
	writer io.Writer
	mu     *sync.Mutex
	level  LogLevel
	fields Fields
}

func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{writer: w, mu: &sync.Mutex{}, level: level}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// WithField returns a derived logger carrying one extra field.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a derived logger carrying the merged field set.
// The receiver is not modified.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{writer: l.writer, mu: l.mu, level: l.level, fields: merged}
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var line strings.Builder
	line.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	line.WriteString(" [")
	line.WriteString(level.String())
	line.WriteString("] ")
	fmt.Fprintf(&line, format, args...)

	// Sorted field order keeps log output stable for tooling.
	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&line, " %s=%v", k, l.fields[k])
	}

	fmt.Fprintln(l.writer, line.String())
}

func (l *Logger) Debug(format string, args ...any) { l.log(LogDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LogInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LogWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LogError, format, args...) }

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		level := parseLogLevel(GetGlobalConfig().LogLevel)
		globalLogger = NewLogger(os.Stderr, level)
	})
}

func init() {
	initGlobalLogger()
}

// SetLogger replaces the package-level logger.
func SetLogger(logger *Logger) {
	globalLogger = logger
}

// GetLogger returns the package-level logger.
func GetLogger() *Logger {
	initGlobalLogger()
	return globalLogger
}

func Debug(format string, args ...any) { GetLogger().Debug(format, args...) }
func Info(format string, args ...any)  { GetLogger().Info(format, args...) }
func Warn(format string, args ...any)  { GetLogger().Warn(format, args...) }
func Error(format string, args ...any) { GetLogger().Error(format, args...) }

// UpdateLoggerFromConfig re-reads the log level from the global config.
func UpdateLoggerFromConfig() {
	GetLogger().SetLevel(parseLogLevel(GetGlobalConfig().LogLevel))
}
