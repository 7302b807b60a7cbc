// File: internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/actuate/internal/config"
)

// memSink is an in-memory WriteSyncer for capturing console output.
type memSink struct {
	strings.Builder
}

func (s *memSink) Sync() error { return nil }

func TestInitializeConsoleFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "actuate-test",
		Colors:      config.ColorConfig{Info: "green"},
	}, zapcore.AddSync(sink))

	GetLogger().Info("engine ready")

	out := sink.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "engine ready")
	assert.Contains(t, out, colorGreen)
	assert.Contains(t, out, colorReset)
	assert.Contains(t, out, "actuate-test.")
}

func TestInitializeJSONFormat(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "actuate-test",
	}, zapcore.AddSync(sink))

	GetLogger().Info("structured line")

	line := strings.TrimSpace(sink.String())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "structured line", decoded["msg"])
	assert.Equal(t, "INFO", decoded["level"])
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &memSink{}
	second := &memSink{}
	Initialize(config.LoggerConfig{Level: "info", Format: "console"}, zapcore.AddSync(first))
	Initialize(config.LoggerConfig{Level: "info", Format: "console"}, zapcore.AddSync(second))

	GetLogger().Info("only the first sink sees this")

	assert.Contains(t, first.String(), "only the first sink sees this")
	assert.Empty(t, second.String())
}

func TestFileSinkWritesJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "actuate.log")
	sink := &memSink{}
	Initialize(config.LoggerConfig{
		Level:   "info",
		Format:  "console",
		LogFile: logFile,
		MaxSize: 1,
	}, zapcore.AddSync(sink))

	GetLogger().Info("to file too")
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"to file too"`)
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	// Must not panic, and must hand back something usable.
	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Debug("fallback logger is alive")
}
