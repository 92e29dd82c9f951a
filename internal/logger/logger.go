// Package logger is the structured logging layer of ltxtrans. Entries are
// written through logrus to a size-rotated file and, optionally, stderr.
// Until Init is called every entry is discarded.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is the severity of an entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levels = [...]struct {
	name    string
	backend logrus.Level
}{
	LevelDebug: {"DEBUG", logrus.DebugLevel},
	LevelInfo:  {"INFO", logrus.InfoLevel},
	LevelWarn:  {"WARN", logrus.WarnLevel},
	LevelError: {"ERROR", logrus.ErrorLevel},
}

func (l Level) valid() bool { return l >= LevelDebug && l <= LevelError }

func (l Level) String() string {
	if !l.valid() {
		return "UNKNOWN"
	}
	return levels[l].name
}

func (l Level) logrus() logrus.Level {
	if !l.valid() {
		return logrus.InfoLevel
	}
	return levels[l].backend
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// The empty string is info.
func ParseLevel(name string) (Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "":
		return LevelInfo, nil
	case "WARNING":
		return LevelWarn, nil
	}
	for l := range levels {
		if levels[l].name == name {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Field is one key/value attached to an entry.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{key, value} }
func Int(key string, value int) Field     { return Field{key, value} }
func Int64(key string, value int64) Field { return Field{key, value} }
func Float64(key string, v float64) Field { return Field{key, v} }
func Bool(key string, value bool) Field   { return Field{key, value} }
func Any(key string, value any) Field     { return Field{key, value} }

// Err records err under "error" as its message.
func Err(err error) Field {
	if err == nil {
		return Field{"error", nil}
	}
	return Field{"error", err.Error()}
}

// Logger is implemented by DefaultLogger and the discard logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	// Error also records the caller's file and line.
	Error(msg string, err error, fields ...Field)
	SetLevel(level Level)
	Close() error
}

// Config selects where entries go.
type Config struct {
	// LogFilePath is the log file. Empty means no file.
	LogFilePath string
	// MaxFileSize in bytes triggers rotation to LogFilePath.1.
	MaxFileSize int64
	MaxBackups  int
	Level       Level
	// EnableConsole also writes entries to stderr.
	EnableConsole bool
}

func DefaultConfig() *Config {
	return &Config{
		LogFilePath: "ltxtrans.log",
		MaxFileSize: 10 << 20,
		MaxBackups:  5,
		Level:       LevelInfo,
	}
}

// DefaultLogger writes logrus text entries.
type DefaultLogger struct {
	base *logrus.Logger
	file *rotatingFile
}

// NewDefaultLogger opens the log file of config, creating its directory.
// A nil config means DefaultConfig.
func NewDefaultLogger(config *Config) (*DefaultLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	out := io.Discard
	var file *rotatingFile
	if config.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rf, err := openRotatingFile(config.LogFilePath, config.MaxFileSize, config.MaxBackups)
		if err != nil {
			return nil, err
		}
		file, out = rf, rf
	}
	if config.EnableConsole {
		if file != nil {
			out = io.MultiWriter(file, os.Stderr)
		} else {
			out = os.Stderr
		}
	}

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	base.SetOutput(out)
	base.SetLevel(config.Level.logrus())
	return &DefaultLogger{base: base, file: file}, nil
}

// NewWriterLogger logs to w without timestamps.
func NewWriterLogger(w io.Writer, level Level) *DefaultLogger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	base.SetOutput(w)
	base.SetLevel(level.logrus())
	return &DefaultLogger{base: base}
}

func (l *DefaultLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields) }
func (l *DefaultLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, nil, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, nil, fields) }

func (l *DefaultLogger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, err, fields)
}

func (l *DefaultLogger) SetLevel(level Level) {
	l.base.SetLevel(level.logrus())
}

// Close closes the log file, if any.
func (l *DefaultLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *DefaultLogger) log(level Level, msg string, err error, fields []Field) {
	lvl := level.logrus()
	if !l.base.IsLevelEnabled(lvl) {
		return
	}
	data := make(logrus.Fields, len(fields)+2)
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	if err != nil {
		data[logrus.ErrorKey] = err
	}
	if level == LevelError {
		data["caller"] = caller()
	}
	l.base.WithFields(data).Log(lvl, msg)
}

// caller finds the first frame outside this file.
func caller() string {
	for skip := 2; skip < 12; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if !strings.HasSuffix(file, "/internal/logger/logger.go") {
			return fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}
	return "unknown"
}

var (
	mu     sync.RWMutex
	global Logger
)

// Init replaces the process-wide logger with one built from config.
func Init(config *Config) error {
	lg, err := NewDefaultLogger(config)
	if err != nil {
		return err
	}
	SetGlobalLogger(lg)
	return nil
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return discard{}
	}
	return global
}

// SetGlobalLogger installs lg, closing the logger it replaces.
func SetGlobalLogger(lg Logger) {
	mu.Lock()
	defer mu.Unlock()
	if global != nil && global != lg {
		global.Close()
	}
	global = lg
}

// Close closes and removes the process-wide logger.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		return nil
	}
	err := global.Close()
	global = nil
	return err
}

func Debug(msg string, fields ...Field)            { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)             { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)             { GetLogger().Warn(msg, fields...) }
func Error(msg string, err error, fields ...Field) { GetLogger().Error(msg, err, fields...) }

type discard struct{}

func (discard) Debug(string, ...Field)        {}
func (discard) Info(string, ...Field)         {}
func (discard) Warn(string, ...Field)         {}
func (discard) Error(string, error, ...Field) {}
func (discard) SetLevel(Level)                {}
func (discard) Close() error                  { return nil }
