package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// mockHook 记录经过 logger 的日志级别
type mockHook struct {
	levels []zapcore.Level
}

func (h *mockHook) Hook(e zapcore.Entry) error {
	h.levels = append(h.levels, e.Level)
	return nil
}

func TestLoggerLevels(t *testing.T) {
	assert.NotNil(t, logger.GetLogger(), "nop logger before init")

	dir := t.TempDir()
	cfg := &config.ZapLogConfig{
		Level:  "debug",
		Format: "console",
		Path:   dir,
	}

	l, err := logger.InitLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, logger.Initialized())

	// 普通日志
	logger.Debug("debug msg")
	logger.Info("info msg", zap.String("k", "v"))
	logger.Warn("warn msg")
	logger.Error("error msg")

	// Panic 测试
	assert.Panics(t, func() { logger.Panic("panic msg") })

	hook := &mockHook{}
	named := logger.Named("worker").WithOptions(zap.Hooks(hook.Hook))
	named.Info("named msg")
	named.Warn("named warn")
	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel}, hook.levels)

	_ = logger.Sync()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var found bool
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "jmx-collector-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		if strings.Contains(string(data), "warn msg") && strings.Contains(string(data), `"component":"worker"`) {
			found = true
		}
	}
	assert.True(t, found, "json log file should contain the structured entries")
}
