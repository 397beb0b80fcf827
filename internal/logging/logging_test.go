package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{level: level, logger: log.New(&buf, "", 0)}, &buf
}

func TestSetLevelFromStringGatesBySeverity(t *testing.T) {
	tests := []struct {
		input     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"DEBUG", true, true},
		{"info", false, true},
		{"INFO", false, true},
		{"warn", false, false},
		{"warning", false, false},
		{"error", false, false},
		{"invalid", false, true}, // defaults to info
		{"", false, true},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l, buf := newTestLogger(LevelError)
			l.SetLevelFromString(tt.input)

			buf.Reset()
			l.Debug("debug line")
			assert.Equal(t, tt.wantDebug, buf.Len() > 0, "Debug output presence")

			buf.Reset()
			l.Info("info line")
			assert.Equal(t, tt.wantInfo, buf.Len() > 0, "Info output presence")
		})
	}
}

func TestLoggingOutput(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	l.Debug("test debug %d", 1)
	assert.Contains(t, buf.String(), "[DEBUG]")
	assert.Contains(t, buf.String(), "test debug 1")

	l.SetLevel(LevelInfo)
	buf.Reset()
	l.Debug("should not appear")
	assert.Empty(t, buf.String())

	buf.Reset()
	l.Info("test info")
	assert.Contains(t, buf.String(), "[INFO]")

	buf.Reset()
	l.Warn("test warn")
	assert.Contains(t, buf.String(), "[WARN]")

	buf.Reset()
	l.Error("test error")
	assert.Contains(t, buf.String(), "[ERROR]")
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestPackageLevelFunctionsDelegateToDefault(t *testing.T) {
	SetLevelFromString("debug")
	assert.NotPanics(t, func() {
		Debug("pkg debug")
		Info("pkg info")
		Warn("pkg warn")
		Error("pkg error")
	})
}
