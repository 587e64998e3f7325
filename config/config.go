package config

import (
	"errors"
	"fmt"
	"time"
)

// 模型来源
const (
	ModelSourceFile     = "file"
	ModelSourceDatabase = "database"
)

// Config 是 ModelGate 的全局配置。ai_models 只来自 YAML 或数据库，
// 不绑定环境变量。
type Config struct {
	ModelSource string          `yaml:"model_source" env:"MODEL_SOURCE"`
	Log         LogConfig       `yaml:"log" env:"LOG"`
	Telemetry   TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
	Metrics     MetricsConfig   `yaml:"metrics" env:"METRICS"`
	Database    DatabaseConfig  `yaml:"database" env:"DATABASE"`

	// Models 以 modelKey 为键
	Models map[string]*ModelInfo `yaml:"ai_models"`
}

// LogConfig 对应 zap 的构建参数
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`   // debug|info|warn|error
	Format           string   `yaml:"format" env:"FORMAT"` // json|console
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig OTLP 导出设置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// DatabaseConfig 描述 model_configs 所在的数据库。
// Driver 为 sqlite 时 Name 是文件路径或 file::memory:。
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// Validate 检查全局设置。单个模型的校验在 NewStore 中完成。
func (c *Config) Validate() error {
	var errs []error

	switch c.ModelSource {
	case "", ModelSourceFile:
	case ModelSourceDatabase:
		if c.Database.Driver == "" {
			errs = append(errs, errors.New("database.driver is required when model_source=database"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model_source %q", c.ModelSource))
	}

	if r := c.Telemetry.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", r))
	}

	return errors.Join(errs...)
}

// DSN 按驱动拼接连接串；未知驱动返回空串。
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case "sqlite":
		return d.Name
	}
	return ""
}
