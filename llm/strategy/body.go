package strategy

import (
	"bytes"
	"encoding/json"
)

// Body 是保持插入顺序的 JSON 对象
type Body struct {
	keys   []string
	values map[string]any
}

// NewBody 创建空请求体
func NewBody() *Body {
	return &Body{values: make(map[string]any)}
}

// Set 设置字段。已存在的字段保留原位置。
func (b *Body) Set(key string, value any) *Body {
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
	return b
}

// SetOptional 仅在 ok 为 true 时设置字段
func (b *Body) SetOptional(key string, value any, ok bool) *Body {
	if ok {
		b.Set(key, value)
	}
	return b
}

// Get 读取字段
func (b *Body) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Keys 返回按插入顺序排列的字段名
func (b *Body) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len 返回字段数
func (b *Body) Len() int {
	return len(b.keys)
}

// MarshalJSON 按插入顺序输出字段，不做 HTML 转义
func (b *Body) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, key := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(b.values[key]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
