package strategy

import (
	"errors"
	"sort"
	"strings"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/types"
)

// Registration 一条策略注册
type Registration struct {
	Provider string
	Kind     Kind
	Impl     any
}

type entryKey struct {
	provider string
	kind     Kind
}

// Builder 收集策略注册，Build 后得到只读的 Registry。
// Builder 本身不是并发安全的，只应在启动阶段使用。
type Builder struct {
	entries map[entryKey]any
}

// NewBuilder 创建注册构建器
func NewBuilder() *Builder {
	return &Builder{entries: make(map[entryKey]any)}
}

// Register 注册一个策略实现。
// 同一 (provider, kind) 重复注册、实现与 kind 不匹配，或 Supports 拒绝该 provider 时返回 CONFIG 错误。
func (b *Builder) Register(provider string, kind Kind, impl any) error {
	if provider == "" {
		return types.NewError(types.ErrConfig, "strategy provider must not be empty")
	}
	if impl == nil {
		return types.Errorf(types.ErrConfig, "strategy %s for provider %q is nil", kind, provider).
			WithProvider(provider)
	}

	probe := config.NewModelInfo("", provider, "", nil)
	switch kind {
	case KindHeaderBuilder:
		hb, ok := impl.(HeaderBuilder)
		if !ok {
			return mismatch(provider, kind, impl)
		}
		if !hb.Supports(probe) {
			return unsupported(provider, kind)
		}
	case KindBodyBuilder:
		bb, ok := impl.(BodyBuilder)
		if !ok {
			return mismatch(provider, kind, impl)
		}
		if !bb.Supports(probe) {
			return unsupported(provider, kind)
		}
	case KindResponseParser:
		if _, ok := impl.(ResponseParser); !ok {
			return mismatch(provider, kind, impl)
		}
	default:
		return types.Errorf(types.ErrConfig, "unknown strategy kind %q", kind).WithProvider(provider)
	}

	key := entryKey{provider: provider, kind: kind}
	if existing, ok := b.entries[key]; ok {
		return types.Errorf(types.ErrConfig, "duplicate %s for provider %q: %T already registered, got %T",
			kind, provider, existing, impl).WithProvider(provider)
	}
	b.entries[key] = impl
	return nil
}

func mismatch(provider string, kind Kind, impl any) error {
	return types.Errorf(types.ErrConfig, "%T does not implement %s", impl, kind).WithProvider(provider)
}

func unsupported(provider string, kind Kind) error {
	return types.Errorf(types.ErrConfig, "%s registered for provider %q does not support it", kind, provider).
		WithProvider(provider)
}

// Build 返回当前注册表的只读快照
func (b *Builder) Build() *Registry {
	entries := make(map[entryKey]any, len(b.entries))
	for k, v := range b.entries {
		entries[k] = v
	}
	return &Registry{entries: entries}
}

// NewRegistry 一次性注册全部策略。所有注册错误会被汇总返回。
func NewRegistry(regs ...Registration) (*Registry, error) {
	b := NewBuilder()
	var errs []error
	for _, r := range regs {
		if err := b.Register(r.Provider, r.Kind, r.Impl); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, types.NewError(types.ErrConfig, "strategy registration failed").WithCause(errors.Join(errs...))
	}
	return b.Build(), nil
}

// Registry 按 (provider, kind) 查找策略。构建后只读，查找不加锁。
type Registry struct {
	entries map[entryKey]any
}

// Lookup 查找策略实现，未找到时返回 CONFIG 错误。
func (r *Registry) Lookup(provider string, kind Kind) (any, error) {
	impl, ok := r.entries[entryKey{provider: provider, kind: kind}]
	if !ok {
		return nil, types.Errorf(types.ErrConfig, "no %s registered for provider %q", kind, provider).
			WithProvider(provider)
	}
	return impl, nil
}

// Has 判断策略是否存在
func (r *Registry) Has(provider string, kind Kind) bool {
	_, ok := r.entries[entryKey{provider: provider, kind: kind}]
	return ok
}

// HeaderBuilder 查找请求头构造器
func (r *Registry) HeaderBuilder(provider string) (HeaderBuilder, error) {
	impl, err := r.Lookup(provider, KindHeaderBuilder)
	if err != nil {
		return nil, err
	}
	return impl.(HeaderBuilder), nil
}

// BodyBuilder 查找请求体构造器
func (r *Registry) BodyBuilder(provider string) (BodyBuilder, error) {
	impl, err := r.Lookup(provider, KindBodyBuilder)
	if err != nil {
		return nil, err
	}
	return impl.(BodyBuilder), nil
}

// ResponseParser 查找响应解析器
func (r *Registry) ResponseParser(provider string) (ResponseParser, error) {
	impl, err := r.Lookup(provider, KindResponseParser)
	if err != nil {
		return nil, err
	}
	return impl.(ResponseParser), nil
}

// Providers 返回排序后的提供商列表
func (r *Registry) Providers() []string {
	seen := make(map[string]struct{})
	for k := range r.entries {
		seen[k.provider] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Describe 返回 provider 已注册的策略类型，例如 "header_builder,response_parser"
func (r *Registry) Describe(provider string) string {
	var kinds []string
	for _, k := range Kinds() {
		if r.Has(provider, k) {
			kinds = append(kinds, string(k))
		}
	}
	return strings.Join(kinds, ",")
}
