package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/types"
)

// writeConfig 写入测试配置；指标关闭以免重复注册到默认注册表
func writeConfig(t *testing.T, endpoint string, extra string) string {
	t.Helper()
	content := fmt.Sprintf(`
log:
  level: error
  output_paths: ["stderr"]
metrics:
  enabled: false
ai_models:
  ds:
    name: deepseek-chat
    provider: DeepSeek
    description: DeepSeek over HTTP
    params:
      api-key: sk-test
      endpoint: %[1]s/v1/chatsvc/completions
      appKey: key42
      appid: app123
  ds-stream:
    name: deepseek-chat
    provider: DeepSeek
    params:
      api-key: sk-test
      endpoint: %[1]s/v1/chatsvc/completions
      appKey: key42
      appid: app123
      transport: sse
%[2]s`, endpoint, extra)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func deepSeekUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, c := range []string{"流", "式"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"同步回答"}}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), nil, &stdout, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	err = run(context.Background(), []string{"frobnicate"}, &stdout, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "Unknown command: frobnicate")
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "ModelGate dev")
}

func TestInitLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := config.DefaultLogConfig()
			cfg.Level = tt.level
			logger := initLogger(cfg)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestInitLogger_Console(t *testing.T) {
	cfg := config.DefaultLogConfig()
	cfg.Format = "console"
	cfg.OutputPaths = nil
	assert.NotNil(t, initLogger(cfg))
}

func TestRunInvoke_FanOut(t *testing.T) {
	srv := deepSeekUpstream(t)
	path := writeConfig(t, srv.URL, "")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"invoke", "-config", path, "-model", "ds", "-model", "ds", "你好"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Equal(t, 2, strings.Count(stdout.String(), "同步回答"))
	assert.Contains(t, stdout.String(), "[ds · DeepSeek]")
}

func TestRunInvoke_ReportsFailures(t *testing.T) {
	srv := deepSeekUpstream(t)
	path := writeConfig(t, srv.URL, "")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"invoke", "-config", path, "-model", "ds", "-model", "missing", "-prompt", "hi"}, &stdout, &stderr)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfig))
	assert.Contains(t, stdout.String(), "同步回答")
	assert.Contains(t, stderr.String(), "[missing] CONFIG")
}

func TestRunInvoke_RetriesRetryableFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"第二次成功"}}]}`)
	}))
	t.Cleanup(srv.Close)
	path := writeConfig(t, srv.URL, "")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"invoke", "-config", path, "-model", "ds", "-retries", "1", "-prompt", "hi"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Equal(t, "第二次成功\n", stdout.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunInvoke_RequiresModelAndPrompt(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"invoke", "-prompt", "hi"}, &bytes.Buffer{}, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "-model")
}

func TestRunStream(t *testing.T) {
	srv := deepSeekUpstream(t)
	path := writeConfig(t, srv.URL, "")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"stream", "-config", path, "-model", "ds-stream", "-prompt", "hi"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Equal(t, "流式\n", stdout.String())
}

func TestRunStream_WrongTransport(t *testing.T) {
	srv := deepSeekUpstream(t)
	path := writeConfig(t, srv.URL, "")

	err := run(context.Background(), []string{"stream", "-config", path, "-model", "ds", "-prompt", "hi"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrUnsupported))
}

func TestRunModels_FromFile(t *testing.T) {
	path := writeConfig(t, "https://example.com", "")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"models", "-config", path}, &stdout, &bytes.Buffer{}))

	out := stdout.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "ds-stream")
	assert.Contains(t, out, "sse")
	assert.Contains(t, out, "DeepSeek over HTTP")
}

func TestRunImport_ThenModelsFromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "models.db")
	path := writeConfig(t, "https://example.com", fmt.Sprintf(`
database:
  driver: sqlite
  name: %s
  max_open_conns: 1
`, dbPath))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"import", "-config", path}, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "imported 2 models\n", stdout.String())

	t.Setenv("MODELGATE_MODEL_SOURCE", config.ModelSourceDatabase)
	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"models", "-config", path}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "ds-stream")
	assert.Contains(t, stdout.String(), "DeepSeek over HTTP")
}

func TestRunImport_RequiresDatabase(t *testing.T) {
	path := writeConfig(t, "https://example.com", "")
	err := run(context.Background(), []string{"import", "-config", path}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestRunMigrate_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "models.db")
	path := writeConfig(t, "https://example.com", fmt.Sprintf(`
database:
  driver: sqlite
  name: %s
`, dbPath))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"migrate", "-config", path, "up"}, &stdout, &bytes.Buffer{}))
	assert.Equal(t, "Schema synchronized (sqlite).\n", stdout.String())

	err := run(context.Background(), []string{"migrate", "-config", path, "down"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite only supports")
}

func TestRunMigrate_RequiresDatabase(t *testing.T) {
	path := writeConfig(t, "https://example.com", "")
	err := run(context.Background(), []string{"migrate", "-config", path, "up"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}
