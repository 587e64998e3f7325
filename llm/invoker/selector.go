package invoker

import (
	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/types"
)

// transportKinds 按固定顺序列出全部调用方式
var transportKinds = []config.TransportKind{
	config.TransportHTTP,
	config.TransportSSE,
	config.TransportWebSocket,
}

// Selector 按调用方式选择 Invoker。构造后只读。
type Selector struct {
	byKind map[config.TransportKind]Invoker
}

// NewSelector 为每种调用方式选取第一个声明支持的 Invoker
func NewSelector(invokers ...Invoker) *Selector {
	s := &Selector{byKind: make(map[config.TransportKind]Invoker, len(transportKinds))}
	for _, kind := range transportKinds {
		for _, inv := range invokers {
			if inv != nil && inv.Supports(kind) {
				s.byKind[kind] = inv
				break
			}
		}
	}
	return s
}

// ForTransport 返回指定调用方式的 Invoker
func (s *Selector) ForTransport(kind config.TransportKind) (Invoker, error) {
	inv, ok := s.byKind[kind]
	if !ok {
		return nil, types.Errorf(types.ErrConfig, "no invoker for transport %q", kind)
	}
	return inv, nil
}

// Select 按模型配置的调用方式返回 Invoker
func (s *Selector) Select(info *config.ModelInfo) (Invoker, config.TransportKind, error) {
	p, err := info.Params()
	if err != nil {
		return nil, "", types.Tag(err, types.ErrConfig, info.Provider, "")
	}
	inv, err := s.ForTransport(p.Transport)
	if err != nil {
		return nil, p.Transport, types.Tag(err, types.ErrConfig, info.Provider, "")
	}
	return inv, p.Transport, nil
}
