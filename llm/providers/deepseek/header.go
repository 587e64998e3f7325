package deepseek

import (
	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/signing"
	"github.com/BaSui01/modelgate/types"
)

// Provider 是 DeepSeek 在配置中的提供商名
const Provider = "DeepSeek"

// HeaderBuilder 使用校验和方案签名。需要 extra 参数 appKey 与 appid。
type HeaderBuilder struct {
	source signing.Source
}

// NewHeaderBuilder 创建请求头构造器
func NewHeaderBuilder(source signing.Source) *HeaderBuilder {
	return &HeaderBuilder{source: source}
}

// Supports 实现 strategy.HeaderBuilder
func (h *HeaderBuilder) Supports(info *config.ModelInfo) bool {
	return info.Provider == Provider
}

// Build 实现 strategy.HeaderBuilder
func (h *HeaderBuilder) Build(info *config.ModelInfo) (map[string]string, error) {
	p, err := providers.ModelParams(info)
	if err != nil {
		return nil, err
	}
	appKey, err := providers.RequireExtra(info, p, "appKey")
	if err != nil {
		return nil, err
	}
	appID, err := providers.RequireExtra(info, p, "appid")
	if err != nil {
		return nil, err
	}
	headers, err := h.source.ChecksumHeaders(appKey, appID, p.Endpoint)
	if err != nil {
		return nil, types.Tag(err, types.ErrSigning, info.Provider, "")
	}
	return headers, nil
}
