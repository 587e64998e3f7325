package deepseek

import (
	"encoding/json"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/providers"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

// Parser 解析 OpenAI 兼容响应
type Parser struct{}

// NewParser 创建响应解析器
func NewParser() *Parser {
	return &Parser{}
}

// ParseSync 返回 choices[0].message.content
func (p *Parser) ParseSync(body []byte, info *config.ModelInfo) (string, error) {
	var resp providers.OpenAICompatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", types.NewError(types.ErrParse, "invalid DeepSeek response").
			WithCause(err).WithBody(string(body)).WithProvider(info.Provider)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", types.Errorf(types.ErrParse, "DeepSeek error: %s", resp.Error.Message).
			WithBody(string(body)).WithProvider(info.Provider)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", types.NewError(types.ErrParse, "DeepSeek response has no choices[0].message").
			WithBody(string(body)).WithProvider(info.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseStreamLine 返回 data 行中 choices[0].delta.content
func (p *Parser) ParseStreamLine(line string, _ *config.ModelInfo) (string, bool) {
	payload, ok := strategy.TrimSSEData(line)
	if !ok || strategy.IsSSEDone(payload) {
		return "", false
	}
	var chunk providers.OpenAICompatResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
		return "", false
	}
	text := chunk.Choices[0].Delta.Content
	return text, text != ""
}

// ParseSocketMessage 与同步响应格式相同；增量消息回退到 delta.content
func (p *Parser) ParseSocketMessage(msg []byte, _ *config.ModelInfo) (string, bool) {
	payload, ok := strategy.TrimSSEData(string(msg))
	if !ok {
		return "", false
	}
	var resp providers.OpenAICompatResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil || len(resp.Choices) == 0 {
		return "", false
	}
	c := resp.Choices[0]
	var text string
	switch {
	case c.Message != nil && c.Message.Content != "":
		text = c.Message.Content
	case c.Delta != nil:
		text = c.Delta.Content
	}
	return text, text != ""
}

// IsComplete 实现 strategy.ResponseParser
func (p *Parser) IsComplete(msg []byte, info *config.ModelInfo) bool {
	return strategy.CompletionByProvider(info.Provider, msg)
}
