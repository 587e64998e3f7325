package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/BaSui01/modelgate/types"
)

// ExtraKind extra 参数值的类型
type ExtraKind int

const (
	ExtraString ExtraKind = iota + 1
	ExtraNumber
	ExtraBool
	ExtraMap
)

// String 实现 fmt.Stringer
func (k ExtraKind) String() string {
	switch k {
	case ExtraString:
		return "string"
	case ExtraNumber:
		return "number"
	case ExtraBool:
		return "bool"
	case ExtraMap:
		return "map"
	default:
		return "unknown"
	}
}

// ExtraValue 是 {string, number, bool, map} 四选一的参数值。
type ExtraValue struct {
	kind ExtraKind
	s    string
	n    float64
	b    bool
	m    map[string]ExtraValue
}

// StringValue 构造字符串值
func StringValue(s string) ExtraValue { return ExtraValue{kind: ExtraString, s: s} }

// NumberValue 构造数值
func NumberValue(n float64) ExtraValue { return ExtraValue{kind: ExtraNumber, n: n} }

// BoolValue 构造布尔值
func BoolValue(b bool) ExtraValue { return ExtraValue{kind: ExtraBool, b: b} }

// MapValue 构造嵌套映射
func MapValue(m map[string]ExtraValue) ExtraValue { return ExtraValue{kind: ExtraMap, m: m} }

// NewExtraValue 从 YAML/JSON 解码出的值构造 ExtraValue。
// 列表等其他类型返回 ErrConfig。
func NewExtraValue(v any) (ExtraValue, error) {
	switch x := v.(type) {
	case string:
		return StringValue(x), nil
	case bool:
		return BoolValue(x), nil
	case int:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case uint64:
		return NumberValue(float64(x)), nil
	case float32:
		return NumberValue(float64(x)), nil
	case float64:
		return NumberValue(x), nil
	case map[string]any:
		m := make(map[string]ExtraValue, len(x))
		for k, inner := range x {
			if inner == nil {
				continue
			}
			ev, err := NewExtraValue(inner)
			if err != nil {
				return ExtraValue{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = ev
		}
		return MapValue(m), nil
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, inner := range x {
			m[fmt.Sprint(k)] = inner
		}
		return NewExtraValue(m)
	default:
		return ExtraValue{}, types.Errorf(types.ErrConfig, "unsupported value type %T", v)
	}
}

// Kind 返回值类型
func (v ExtraValue) Kind() ExtraKind { return v.kind }

// Interface 返回对应的 Go 原生值
func (v ExtraValue) Interface() any {
	switch v.kind {
	case ExtraString:
		return v.s
	case ExtraNumber:
		return v.n
	case ExtraBool:
		return v.b
	case ExtraMap:
		out := make(map[string]any, len(v.m))
		for k, inner := range v.m {
			out[k] = inner.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON 实现 json.Marshaler
func (v ExtraValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// ExtraParams 非核心参数
type ExtraParams map[string]ExtraValue

// Lookup 返回原始值
func (e ExtraParams) Lookup(key string) (ExtraValue, bool) {
	v, ok := e[key]
	return v, ok
}

// Has 判断参数是否存在
func (e ExtraParams) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Keys 返回排序后的参数名
func (e ExtraParams) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func missing(key string) *types.Error {
	return types.Errorf(types.ErrMissingParam, "missing required param %q", key)
}

func mismatch(key string, want ExtraKind, got ExtraKind) *types.Error {
	return types.Errorf(types.ErrMissingParam, "param %q: expected %s, got %s", key, want, got)
}

// String 返回字符串参数；数值与布尔值会被格式化为字符串。
func (e ExtraParams) String(key string) (string, error) {
	v, ok := e[key]
	if !ok {
		return "", missing(key)
	}
	switch v.kind {
	case ExtraString:
		return v.s, nil
	case ExtraNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64), nil
	case ExtraBool:
		return strconv.FormatBool(v.b), nil
	default:
		return "", mismatch(key, ExtraString, v.kind)
	}
}

// Int 返回整数参数；字符串会尝试解析。
func (e ExtraParams) Int(key string) (int, error) {
	v, ok := e[key]
	if !ok {
		return 0, missing(key)
	}
	switch v.kind {
	case ExtraNumber:
		return int(v.n), nil
	case ExtraString:
		n, err := strconv.Atoi(v.s)
		if err != nil {
			return 0, mismatch(key, ExtraNumber, v.kind).WithCause(err)
		}
		return n, nil
	default:
		return 0, mismatch(key, ExtraNumber, v.kind)
	}
}

// Float 返回浮点参数；字符串会尝试解析。
func (e ExtraParams) Float(key string) (float64, error) {
	v, ok := e[key]
	if !ok {
		return 0, missing(key)
	}
	switch v.kind {
	case ExtraNumber:
		return v.n, nil
	case ExtraString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, mismatch(key, ExtraNumber, v.kind).WithCause(err)
		}
		return f, nil
	default:
		return 0, mismatch(key, ExtraNumber, v.kind)
	}
}

// Bool 返回布尔参数
func (e ExtraParams) Bool(key string) (bool, error) {
	v, ok := e[key]
	if !ok {
		return false, missing(key)
	}
	switch v.kind {
	case ExtraBool:
		return v.b, nil
	case ExtraString:
		b, err := strconv.ParseBool(v.s)
		if err != nil {
			return false, mismatch(key, ExtraBool, v.kind).WithCause(err)
		}
		return b, nil
	default:
		return false, mismatch(key, ExtraBool, v.kind)
	}
}

// Map 返回嵌套映射参数
func (e ExtraParams) Map(key string) (map[string]ExtraValue, error) {
	v, ok := e[key]
	if !ok {
		return nil, missing(key)
	}
	if v.kind != ExtraMap {
		return nil, mismatch(key, ExtraMap, v.kind)
	}
	return v.m, nil
}
