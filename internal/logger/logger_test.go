package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileLogger(t *testing.T, level Level, maxSize int64) (*DefaultLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	lg, err := NewDefaultLogger(&Config{
		LogFilePath: logPath,
		MaxFileSize: maxSize,
		MaxBackups:  3,
		Level:       level,
	})
	require.NoError(t, err)
	return lg, logPath
}

func TestNewDefaultLogger(t *testing.T) {
	lg, logPath := newFileLogger(t, LevelDebug, 1024)
	defer lg.Close()

	_, err := os.Stat(logPath)
	assert.NoError(t, err, "log file was not created")
}

func TestLogLevels(t *testing.T) {
	lg, logPath := newFileLogger(t, LevelDebug, 1024*1024)

	lg.Debug("debug message", String("key", "value"))
	lg.Info("info message", Int("count", 42))
	lg.Warn("warn message", Bool("flag", true))
	lg.Error("error message", errors.New("test error"), Float64("rate", 3.14))
	require.NoError(t, lg.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	logContent := string(content)

	for _, want := range []string{
		"level=debug", "level=info", "level=warning", "level=error",
		"key=value", "count=42", "flag=true", "rate=3.14",
		`error="test error"`, "caller=logger_test.go",
	} {
		assert.Contains(t, logContent, want)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriterLogger(&buf, LevelWarn)

	lg.Debug("hidden debug")
	lg.Info("hidden info")
	lg.Warn("shown warn")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriterLogger(&buf, LevelError)

	lg.Info("before")
	lg.SetLevel(LevelDebug)
	lg.Debug("after")

	assert.NotContains(t, buf.String(), "before")
	assert.Contains(t, buf.String(), "after")
}

func TestLogRotation(t *testing.T) {
	lg, logPath := newFileLogger(t, LevelInfo, 256)

	for i := 0; i < 20; i++ {
		lg.Info("a message long enough to force rotation after a few writes", Int("i", i))
	}
	require.NoError(t, lg.Close())

	_, err := os.Stat(logPath + ".1")
	assert.NoError(t, err, "expected a rotated backup file")

	_, err = os.Stat(logPath + ".5")
	assert.True(t, os.IsNotExist(err), "backups beyond MaxBackups must be removed")
}

func TestGlobalLogger(t *testing.T) {
	defer Close()

	var buf bytes.Buffer
	SetGlobalLogger(NewWriterLogger(&buf, LevelDebug))

	Debug("global debug")
	Info("global info", String("fragment", "3"))
	Warn("global warn")
	Error("global error", nil)

	out := buf.String()
	assert.Contains(t, out, "global debug")
	assert.Contains(t, out, "fragment=3")
	assert.Contains(t, out, "global error")
}

func TestNoopLogger(t *testing.T) {
	require.NoError(t, Close())

	lg := GetLogger()
	_, ok := lg.(discard)
	assert.True(t, ok, "expected the discard logger before Init")

	lg.Info("discarded")
	assert.NoError(t, lg.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestErrFieldWithNil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestLogDirectoryCreation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "run.log")
	lg, err := NewDefaultLogger(&Config{LogFilePath: logPath, MaxFileSize: 1024, MaxBackups: 1})
	require.NoError(t, err)
	defer lg.Close()

	lg.Info("created")
	_, err = os.Stat(logPath)
	assert.NoError(t, err)
	assert.True(t, strings.HasSuffix(logPath, "run.log"))
}
