// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ModelSourceFile, cfg.ModelSource)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stderr"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "modelgate", cfg.Telemetry.ServiceName)
	assert.Equal(t, "modelgate", cfg.Metrics.Namespace)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.NotNil(t, cfg.Models)
	assert.Empty(t, cfg.Models)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Models)
}

const sampleYAML = `
log:
  level: "debug"
  format: "console"

metrics:
  namespace: "gw"

ai_models:
  deepseek-r1:
    name: "deepseek-r1"
    provider: "DeepSeek"
    description: "DeepSeek R1 via SSE"
    params:
      api-key: "sk-test"
      endpoint: "https://maas.example.com/v1/svc/ds/chat"
      transport: "SSE"
      timeout: 60000
      appKey: "ak"
      appid: "app-1"
  haineng:
    name: "haineng-13b"
    provider: "中海油"
    params:
      api-key: "k1"
      endpoint: "wss://ws.example.com/v1/chat"
      transport: websocket
      requestUrl: "wss://ws.example.com/v1/chat"
      apiSecret: "s1"
      appid: "a1"
      options:
        top_k: 4
        verbose: true
`

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "models.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sampleYAML), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "gw", cfg.Metrics.Namespace)
	require.Len(t, cfg.Models, 2)

	ds := cfg.Models["deepseek-r1"]
	require.NotNil(t, ds)
	assert.Equal(t, "DeepSeek", ds.Provider)
	assert.Equal(t, "DeepSeek R1 via SSE", ds.Description)

	p, err := ds.Params()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", p.APIKey)
	assert.Equal(t, TransportSSE, p.Transport)
	assert.Equal(t, 60*time.Second, p.Timeout)
	assert.True(t, p.ExplicitTimeout)

	appKey, err := p.Extra.String("appKey")
	require.NoError(t, err)
	assert.Equal(t, "ak", appKey)

	hn, err := cfg.Models["haineng"].Params()
	require.NoError(t, err)
	assert.Equal(t, TransportWebSocket, hn.Transport)
	opts, err := hn.Extra.Map("options")
	require.NoError(t, err)
	assert.Equal(t, ExtraNumber, opts["top_k"].Kind())
	assert.Equal(t, true, opts["verbose"].Interface())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("MODELGATE_LOG_LEVEL", "warn")
	t.Setenv("MODELGATE_LOG_OUTPUT_PATHS", "stdout, /tmp/mg.log")
	t.Setenv("MODELGATE_TELEMETRY_ENABLED", "true")
	t.Setenv("MODELGATE_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("MODELGATE_DATABASE_CONN_MAX_LIFETIME", "90s")
	t.Setenv("MODELGATE_DATABASE_PORT", "3306")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/tmp/mg.log"}, cfg.Log.OutputPaths)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, 90*time.Second, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 3306, cfg.Database.Port)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "models.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sampleYAML), 0644))

	t.Setenv("MODELGATE_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	// YAML 值保留
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Len(t, cfg.Models, 2)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("GATEWAY_LOG_LEVEL", "debug")

	cfg, err := NewLoader().WithEnvPrefix("GATEWAY").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_WithValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error { return c.Validate() }).
		WithValidator(func(c *Config) error {
			if len(c.Models) == 0 {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/models.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log: [unclosed"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("MODELGATE_DATABASE_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODELGATE_DATABASE_PORT")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "database source needs driver",
			mutate:  func(c *Config) { c.ModelSource = ModelSourceDatabase },
			wantErr: "database.driver is required",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.ModelSource = "etcd" },
			wantErr: `unknown model_source "etcd"`,
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "mg", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=mg sslmode=disable", pg.DSN())

	my := DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "mg"}
	assert.Equal(t, "u:p@tcp(db:3306)/mg?parseTime=true", my.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Name: "file::memory:"}
	assert.Equal(t, "file::memory:", lite.DSN())

	assert.Empty(t, (&DatabaseConfig{Driver: "oracle"}).DSN())
}

const secretYAML = `
ai_models:
  ds:
    name: "ds"
    provider: "DeepSeek"
    params:
      api-key: "${MG_TEST_API_KEY}"
      endpoint: "https://${MG_TEST_HOST}/v1/chat"
      options:
        secret: "${MG_TEST_API_KEY}"
        plain: "keep"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_ExpandsModelParamsFromEnv(t *testing.T) {
	t.Setenv("MG_TEST_API_KEY", "sk-from-env")
	t.Setenv("MG_TEST_HOST", "maas.example.com")

	cfg, err := NewLoader().WithConfigPath(writeConfig(t, secretYAML)).Load()
	require.NoError(t, err)

	p, err := cfg.Models["ds"].Params()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", p.APIKey)
	assert.Equal(t, "https://maas.example.com/v1/chat", p.Endpoint)

	opts, err := p.Extra.Map("options")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", opts["secret"].Interface())
	assert.Equal(t, "keep", opts["plain"].Interface())
}

func TestLoader_ExpandMissingVariable(t *testing.T) {
	t.Setenv("MG_TEST_HOST", "maas.example.com")

	l := NewLoader().WithConfigPath(writeConfig(t, secretYAML))
	l.lookupEnv = func(name string) (string, bool) {
		if name == "MG_TEST_API_KEY" {
			return "", false
		}
		return os.LookupEnv(name)
	}

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai_models.ds.params.api-key")
	assert.Contains(t, err.Error(), "MG_TEST_API_KEY is not set")
}

func TestLoader_ReportsEveryBadEnvValue(t *testing.T) {
	t.Setenv("MODELGATE_DATABASE_PORT", "x")
	t.Setenv("MODELGATE_TELEMETRY_ENABLED", "maybe")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODELGATE_DATABASE_PORT")
	assert.Contains(t, err.Error(), "MODELGATE_TELEMETRY_ENABLED")
}
