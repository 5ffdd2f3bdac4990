package logger

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	l := New("warn", "json")
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestWithFields_CarriesContext(t *testing.T) {
	log, logs := NewObserved(zapcore.DebugLevel)

	scoped := log.WithFields(map[string]interface{}{"taskType": "classify-query"})
	scoped.Info("job received", map[string]interface{}{"jobKey": int64(42)})

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "job received", entries[0].Message)
	assert.Equal(t, "classify-query", ctx["taskType"])
	assert.Equal(t, int64(42), ctx["jobKey"])
}

func TestErrorFieldsLogAsMessages(t *testing.T) {
	log, logs := NewObserved(zapcore.DebugLevel)

	log.Error("failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.FilterMessage("failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}

func TestNewZapAdapter_ReportsCallSite(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapAdapter(zap.New(core, zap.AddCaller()))

	log.WithFields(map[string]interface{}{"worker": "allocate-portfolio"}).Info("ready", nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Caller.Defined)
	assert.True(t, strings.HasSuffix(entries[0].Caller.File, "logger_test.go"), entries[0].Caller.File)
	assert.Equal(t, "allocate-portfolio", entries[0].ContextMap()["worker"])
}

func TestObserved_FiltersBelowLevel(t *testing.T) {
	log, logs := NewObserved(zapcore.WarnLevel)

	log.Debug("hidden", nil)
	log.Info("hidden", nil)
	log.Warn("shown", nil)
	log.WithFields(map[string]interface{}{"k": "v"}).Error("shown", nil)

	assert.Equal(t, 2, logs.FilterMessage("shown").Len())
	assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
}

func TestNoOpLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNoOpLogger().Info("nothing", map[string]interface{}{"a": 1})
	})
}
