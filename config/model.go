package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/modelgate/types"
)

// TransportKind 调用方式
type TransportKind string

const (
	TransportHTTP      TransportKind = "http"
	TransportSSE       TransportKind = "sse"
	TransportWebSocket TransportKind = "websocket"
)

// ParseTransportKind 大小写不敏感地解析调用方式，空值为 http。
func ParseTransportKind(s string) (TransportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(TransportHTTP):
		return TransportHTTP, nil
	case string(TransportSSE):
		return TransportSSE, nil
	case string(TransportWebSocket), "ws":
		return TransportWebSocket, nil
	default:
		return "", types.Errorf(types.ErrConfig, "unknown transport %q", s)
	}
}

// 原始参数中的核心键
const (
	ParamAPIKey      = "api-key"
	ParamEndpoint    = "endpoint"
	ParamTimeout     = "timeout"
	ParamMaxTokens   = "max-tokens"
	ParamStream      = "stream"
	ParamTemperature = "temperature"
	ParamModelName   = "model-name"
	ParamTransport   = "transport"
)

// ModelParams 由 ModelInfo 原始参数派生的强类型参数。
type ModelParams struct {
	APIKey      string
	Endpoint    string
	Timeout     time.Duration
	MaxTokens   int
	Stream      bool
	Temperature float64
	ModelName   string
	Transport   TransportKind

	// ExplicitTimeout 为 true 表示 timeout 在配置中显式给出。
	ExplicitTimeout bool

	Extra ExtraParams
}

// ModelInfo 描述一个已配置的模型。加载后不可变，调用方只持有指针。
type ModelInfo struct {
	Name        string
	Description string
	Provider    string

	mu     sync.Mutex
	raw    map[string]any
	params *ModelParams
}

// modelInfoYAML 是 ModelInfo 在 YAML 中的形态
type modelInfoYAML struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Provider    string         `yaml:"provider"`
	Params      map[string]any `yaml:"params"`
}

// NewModelInfo 创建模型描述
func NewModelInfo(name, provider, description string, params map[string]any) *ModelInfo {
	return &ModelInfo{
		Name:        name,
		Provider:    provider,
		Description: description,
		raw:         params,
	}
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (m *ModelInfo) UnmarshalYAML(unmarshal func(any) error) error {
	var y modelInfoYAML
	if err := unmarshal(&y); err != nil {
		return err
	}
	m.Name = y.Name
	m.Description = y.Description
	m.Provider = y.Provider
	m.SetParams(y.Params)
	return nil
}

// MarshalYAML 实现 yaml.Marshaler
func (m *ModelInfo) MarshalYAML() (any, error) {
	return modelInfoYAML{
		Name:        m.Name,
		Description: m.Description,
		Provider:    m.Provider,
		Params:      m.RawParams(),
	}, nil
}

// RawParams 返回原始参数的浅拷贝
func (m *ModelInfo) RawParams() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.raw))
	for k, v := range m.raw {
		out[k] = v
	}
	return out
}

// SetParams 替换原始参数并清除已缓存的 ModelParams。
func (m *ModelInfo) SetParams(raw map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = raw
	m.params = nil
}

// Params 返回派生参数。首次调用时解析并缓存，之后直接返回缓存。
func (m *ModelInfo) Params() (*ModelParams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.params != nil {
		return m.params, nil
	}
	p, err := ParseModelParams(m.raw)
	if err != nil {
		return nil, err
	}
	m.params = p
	return p, nil
}

// ModelName 返回请求体中使用的模型名: model-name 参数，缺省为 Name。
func (m *ModelInfo) ModelName() string {
	if p, err := m.Params(); err == nil && p.ModelName != "" {
		return p.ModelName
	}
	return m.Name
}

// ParseModelParams 将原始参数转换为 ModelParams。
// 未识别的键进入 Extra；数值型字符串会被转换。
func ParseModelParams(raw map[string]any) (*ModelParams, error) {
	p := &ModelParams{
		Timeout:     DefaultTimeoutMillis * time.Millisecond,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Transport:   TransportHTTP,
		Extra:       ExtraParams{},
	}

	for key, value := range raw {
		if value == nil {
			continue
		}
		var err error
		switch key {
		case ParamAPIKey:
			p.APIKey, err = asString(key, value)
		case ParamEndpoint:
			p.Endpoint, err = asString(key, value)
		case ParamModelName:
			p.ModelName, err = asString(key, value)
		case ParamTimeout:
			var ms int64
			ms, err = asInt(key, value)
			if err == nil {
				if ms <= 0 {
					err = types.Errorf(types.ErrConfig, "param %q must be positive, got %d", key, ms)
					break
				}
				p.Timeout = time.Duration(ms) * time.Millisecond
				p.ExplicitTimeout = true
			}
		case ParamMaxTokens:
			var n int64
			n, err = asInt(key, value)
			p.MaxTokens = int(n)
		case ParamStream:
			p.Stream, err = asBool(key, value)
		case ParamTemperature:
			p.Temperature, err = asFloat(key, value)
		case ParamTransport:
			var s string
			if s, err = asString(key, value); err == nil {
				p.Transport, err = ParseTransportKind(s)
			}
		default:
			var ev ExtraValue
			ev, err = NewExtraValue(value)
			if err == nil {
				p.Extra[key] = ev
			} else {
				err = fmt.Errorf("extra param %q: %w", key, err)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func asString(key string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int, int64, float64, bool:
		return fmt.Sprint(x), nil
	default:
		return "", types.Errorf(types.ErrConfig, "param %q: expected string, got %T", key, v)
	}
}

func asInt(key string, v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, types.Errorf(types.ErrConfig, "param %q: invalid integer %q", key, x).WithCause(err)
		}
		return n, nil
	default:
		return 0, types.Errorf(types.ErrConfig, "param %q: expected integer, got %T", key, v)
	}
}

func asFloat(key string, v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, types.Errorf(types.ErrConfig, "param %q: invalid number %q", key, x).WithCause(err)
		}
		return f, nil
	default:
		return 0, types.Errorf(types.ErrConfig, "param %q: expected number, got %T", key, v)
	}
}

func asBool(key string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, types.Errorf(types.ErrConfig, "param %q: invalid bool %q", key, x).WithCause(err)
		}
		return b, nil
	default:
		return false, types.Errorf(types.ErrConfig, "param %q: expected bool, got %T", key, v)
	}
}
