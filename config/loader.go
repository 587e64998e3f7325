package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 是环境变量覆盖使用的默认前缀
const DefaultEnvPrefix = "MODELGATE"

// Loader 按 默认值 → YAML → 环境变量 的顺序组装 Config：
//
//	cfg, err := config.NewLoader().WithConfigPath("models.yaml").Load()
//
// YAML 中模型参数的字符串值可以写成 ${VAR}，加载时用环境变量替换。
type Loader struct {
	path       string
	prefix     string
	lookupEnv  func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建加载器，前缀为 DefaultEnvPrefix
func NewLoader() *Loader {
	return &Loader{prefix: DefaultEnvPrefix, lookupEnv: os.LookupEnv}
}

// WithConfigPath 指定 YAML 文件；文件不存在时只用默认值和环境变量
func (l *Loader) WithConfigPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnvPrefix 替换环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.prefix = prefix
	return l
}

// WithValidator 追加一个校验函数，按添加顺序执行
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 组装并校验配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := l.readFile(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := l.expandModelParams(cfg); err != nil {
		return nil, fmt.Errorf("failed to expand model params: %w", err)
	}
	if err := l.applyEnv(reflect.ValueOf(cfg).Elem(), l.prefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, validate := range l.validators {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func (l *Loader) readFile(cfg *Config) error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Models == nil {
		cfg.Models = map[string]*ModelInfo{}
	}
	return nil
}

// expandModelParams 替换模型参数中的 ${VAR}。未设置的变量视为错误，
// 避免带着空 api-key 发出请求。
func (l *Loader) expandModelParams(cfg *Config) error {
	var errs []error
	for key, info := range cfg.Models {
		if info == nil {
			continue
		}
		raw := info.RawParams()
		changed := false
		for name, v := range raw {
			nv, ok, err := l.expandValue(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("ai_models.%s.params.%s: %w", key, name, err))
				continue
			}
			if ok {
				raw[name] = nv
				changed = true
			}
		}
		if changed {
			info.SetParams(raw)
		}
	}
	return errors.Join(errs...)
}

// expandValue 返回替换后的值以及是否发生了替换；嵌套 map 递归处理
func (l *Loader) expandValue(v any) (any, bool, error) {
	switch x := v.(type) {
	case string:
		if !strings.Contains(x, "${") {
			return x, false, nil
		}
		var missing []string
		out := os.Expand(x, func(name string) string {
			val, ok := l.lookupEnv(name)
			if !ok {
				missing = append(missing, name)
			}
			return val
		})
		if len(missing) > 0 {
			return nil, false, fmt.Errorf("environment variable %s is not set", strings.Join(missing, ", "))
		}
		return out, true, nil
	case map[string]any:
		cp := make(map[string]any, len(x))
		changed := false
		var errs []error
		for k, item := range x {
			nv, ok, err := l.expandValue(item)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", k, err))
				continue
			}
			cp[k] = nv
			changed = changed || ok
		}
		if len(errs) > 0 {
			return nil, false, errors.Join(errs...)
		}
		if !changed {
			return x, false, nil
		}
		return cp, true, nil
	}
	return v, false, nil
}

// applyEnv 遍历带 env 标签的字段，键为 PREFIX_PARENT_FIELD。
// 所有无法解析的变量一并报告。
func (l *Loader) applyEnv(v reflect.Value, prefix string) error {
	var errs []error
	for _, f := range reflect.VisibleFields(v.Type()) {
		tag := f.Tag.Get("env")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := prefix + "_" + tag
		field := v.FieldByIndex(f.Index)

		if field.Kind() == reflect.Struct && field.Type() != durationType {
			if err := l.applyEnv(field, key); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		raw, ok := l.lookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		if err := assign(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

var durationType = reflect.TypeOf(time.Duration(0))

func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var items []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
