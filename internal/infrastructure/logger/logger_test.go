package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Env: "production"},
		Log: config.LogConfig{Level: "debug", Format: "console", Output: "stderr"},
	}

	c := FromAppConfig(cfg)
	assert.Equal(t, "debug", c.Level)
	assert.Equal(t, "json", c.Format, "production forces json")
	assert.Equal(t, "stderr", c.Output)

	cfg.App.Env = "development"
	assert.Equal(t, "console", FromAppConfig(cfg).Format)
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procurement.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("purchase order created", zap.String("order_number", "PO-2026-00001"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"purchase order created"`)
	assert.Contains(t, lines[0], `"order_number":"PO-2026-00001"`)
	assert.Contains(t, lines[0], `"level":"info"`)
}

func TestNew_TeesExtraCores(t *testing.T) {
	extra, logs := observer.New(zapcore.WarnLevel)

	log, err := New(&Config{Level: "debug", Format: "console", Output: "stderr"}, extra)
	require.NoError(t, err)

	log.Info("stdout only")
	log.Warn("both")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "both", logs.All()[0].Message)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}
