package cnooc

import (
	"encoding/json"

	"github.com/BaSui01/modelgate/config"
	"github.com/BaSui01/modelgate/llm/strategy"
	"github.com/BaSui01/modelgate/types"
)

// envelope 是中海油平台的响应外壳
type envelope struct {
	Header *struct {
		Code    *int   `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"header"`
	Payload *struct {
		Choices *struct {
			Status int `json:"status"`
			Text   []struct {
				Content string `json:"content"`
				Role    string `json:"role"`
				Index   int    `json:"index"`
			} `json:"text"`
		} `json:"choices"`
	} `json:"payload"`
}

// Parser 解析中海油平台响应，取 payload.choices.text[0].content。
// requireHeader 为 true 时（"中海油-DS"）header.code 必须存在。
type Parser struct {
	requireHeader bool
}

// NewDeepSeekParser 创建 "中海油-DS" 解析器
func NewDeepSeekParser() *Parser {
	return &Parser{requireHeader: true}
}

// NewHainengParser 创建 "中海油" 解析器，header 可选
func NewHainengParser() *Parser {
	return &Parser{}
}

func (p *Parser) extract(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", types.NewError(types.ErrParse, "invalid response json").WithCause(err)
	}
	if env.Header == nil || env.Header.Code == nil {
		if p.requireHeader {
			return "", types.NewError(types.ErrParse, "response has no header.code")
		}
	} else if *env.Header.Code != 0 {
		return "", types.Errorf(types.ErrParse, "upstream error code %d: %s", *env.Header.Code, env.Header.Message)
	}
	if env.Payload == nil || env.Payload.Choices == nil || len(env.Payload.Choices.Text) == 0 {
		return "", types.NewError(types.ErrParse, "response has no payload.choices.text[0]")
	}
	return env.Payload.Choices.Text[0].Content, nil
}

// ParseSync 实现 strategy.ResponseParser
func (p *Parser) ParseSync(body []byte, info *config.ModelInfo) (string, error) {
	text, err := p.extract(body)
	if err != nil {
		if e, ok := types.AsError(err); ok {
			e.WithBody(string(body)).WithProvider(info.Provider)
		}
		return "", err
	}
	return text, nil
}

// ParseStreamLine 实现 strategy.ResponseParser。错误码行视为无内容。
func (p *Parser) ParseStreamLine(line string, _ *config.ModelInfo) (string, bool) {
	payload, ok := strategy.TrimSSEData(line)
	if !ok || strategy.IsSSEDone(payload) {
		return "", false
	}
	text, err := p.extract([]byte(payload))
	return text, err == nil && text != ""
}

// ParseSocketMessage 实现 strategy.ResponseParser。text 为空的帧视为无内容。
func (p *Parser) ParseSocketMessage(msg []byte, _ *config.ModelInfo) (string, bool) {
	text, err := p.extract(msg)
	return text, err == nil && text != ""
}

// IsComplete 实现 strategy.ResponseParser
func (p *Parser) IsComplete(msg []byte, info *config.ModelInfo) bool {
	return strategy.CompletionByProvider(info.Provider, msg)
}
