package factory

import (
	"go.uber.org/zap"

	"github.com/BaSui01/modelgate/llm/invoker"
	"github.com/BaSui01/modelgate/llm/providers/cnooc"
	"github.com/BaSui01/modelgate/llm/providers/deepseek"
	"github.com/BaSui01/modelgate/llm/signing"
	"github.com/BaSui01/modelgate/llm/strategy"
)

// Registrations returns every (provider, kind, implementation) tuple served by
// this build. Signing strategies read time and UUIDs from source.
func Registrations(source signing.Source) []strategy.Registration {
	regs := []strategy.Registration{
		{Provider: deepseek.Provider, Kind: strategy.KindHeaderBuilder, Impl: deepseek.NewHeaderBuilder(source)},
		{Provider: deepseek.Provider, Kind: strategy.KindBodyBuilder, Impl: deepseek.NewBodyBuilder()},
		{Provider: deepseek.Provider, Kind: strategy.KindResponseParser, Impl: deepseek.NewParser()},

		{Provider: cnooc.ProviderDeepSeek, Kind: strategy.KindHeaderBuilder, Impl: cnooc.NewHeaderBuilder(source, cnooc.ProviderDeepSeek)},
		{Provider: cnooc.ProviderDeepSeek, Kind: strategy.KindBodyBuilder, Impl: cnooc.NewDeepSeekBodyBuilder()},
		{Provider: cnooc.ProviderDeepSeek, Kind: strategy.KindResponseParser, Impl: cnooc.NewDeepSeekParser()},
	}

	hainengHeader := cnooc.NewHeaderBuilder(source, cnooc.ProviderHaineng, cnooc.ProviderHainengAlias)
	hainengBody := cnooc.NewHainengBodyBuilder()
	hainengParser := cnooc.NewHainengParser()
	for _, provider := range []string{cnooc.ProviderHaineng, cnooc.ProviderHainengAlias} {
		regs = append(regs,
			strategy.Registration{Provider: provider, Kind: strategy.KindHeaderBuilder, Impl: hainengHeader},
			strategy.Registration{Provider: provider, Kind: strategy.KindBodyBuilder, Impl: hainengBody},
			strategy.Registration{Provider: provider, Kind: strategy.KindResponseParser, Impl: hainengParser},
		)
	}
	return regs
}

// NewRegistry builds the registry for the given signing source.
func NewRegistry(source signing.Source) (*strategy.Registry, error) {
	return strategy.NewRegistry(Registrations(source)...)
}

// NewDefaultRegistry builds the registry with the wall clock and random UUIDs.
func NewDefaultRegistry() (*strategy.Registry, error) {
	return NewRegistry(signing.DefaultSource())
}

// NewInvokers creates the HTTP, SSE and WebSocket invokers sharing the same
// resolver, registry and options.
func NewInvokers(resolver invoker.ModelResolver, registry *strategy.Registry, logger *zap.Logger, opts ...invoker.Option) []invoker.Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []invoker.Invoker{
		invoker.NewHTTPInvoker(resolver, registry, logger, opts...),
		invoker.NewSSEInvoker(resolver, registry, logger, opts...),
		invoker.NewSocketInvoker(resolver, registry, logger, opts...),
	}
}

// NewGateway wires the invokers behind a transport selector.
func NewGateway(resolver invoker.ModelResolver, registry *strategy.Registry, logger *zap.Logger, invokerOpts []invoker.Option, gatewayOpts ...invoker.GatewayOption) *invoker.Gateway {
	selector := invoker.NewSelector(NewInvokers(resolver, registry, logger, invokerOpts...)...)
	return invoker.NewGateway(resolver, selector, logger, gatewayOpts...)
}
