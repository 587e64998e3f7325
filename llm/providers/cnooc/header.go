package cnooc

import (
	"slices"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/signing"
	"github.com/BaSui01/modelgate/types"
)

// 中海油平台上的提供商名
const (
	ProviderDeepSeek     = "中海油-DS"
	ProviderHaineng      = "中海油"
	ProviderHainengAlias = "zhy-haineng"
)

// HeaderBuilder 使用 HMAC-SHA256 方案签名。
// 需要 extra 参数 requestUrl 与 apiSecret，以及核心参数 api-key。
type HeaderBuilder struct {
	source    signing.Source
	providers []string
}

// NewHeaderBuilder 创建请求头构造器，providers 为其服务的提供商名
func NewHeaderBuilder(source signing.Source, providers ...string) *HeaderBuilder {
	return &HeaderBuilder{source: source, providers: providers}
}

// Supports 实现 strategy.HeaderBuilder
func (h *HeaderBuilder) Supports(info *config.ModelInfo) bool {
	return slices.Contains(h.providers, info.Provider)
}

// Build 实现 strategy.HeaderBuilder
func (h *HeaderBuilder) Build(info *config.ModelInfo) (map[string]string, error) {
	p, err := providers.ModelParams(info)
	if err != nil {
		return nil, err
	}
	requestURL, err := providers.RequireExtra(info, p, "requestUrl")
	if err != nil {
		return nil, err
	}
	apiSecret, err := providers.RequireExtra(info, p, "apiSecret")
	if err != nil {
		return nil, err
	}
	if p.APIKey == "" {
		return nil, types.Errorf(types.ErrMissingParam, "missing required param %q", config.ParamAPIKey).
			WithProvider(info.Provider)
	}
	headers, err := h.source.HMACHeaders(p.APIKey, apiSecret, requestURL)
	if err != nil {
		return nil, types.Tag(err, types.ErrSigning, info.Provider, "")
	}
	return headers, nil
}
