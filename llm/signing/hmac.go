package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/BaSui01/modelgate/types"
)

// HMACAlgorithm 出现在 authorization 头中的算法名
const HMACAlgorithm = "hmac-sha256"

// HMAC 方案的请求头
const (
	HeaderAuthorization = "authorization"
	HeaderHost          = "host"
	HeaderDate          = "date"
)

// SigningString 构造待签名串
func SigningString(host, date, path string) string {
	return "host: " + host + "\n" +
		"date: " + date + "\n" +
		"POST " + path + " HTTP/1.1"
}

// SignHMAC 返回 base64(HMAC-SHA256(secret, content))
func SignHMAC(secret, content string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Authorization 组装 authorization 头
func Authorization(apiKey, signature string) string {
	return fmt.Sprintf(`hmac api_key="%s", algorithm="%s", headers="host date request-line", signature="%s"`,
		apiKey, HMACAlgorithm, signature)
}

// ParseRequestURL 解析 requestUrl，要求带 scheme 与 host。
func ParseRequestURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, types.Errorf(types.ErrURLParse, "invalid requestUrl %q", raw).WithCause(err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, types.Errorf(types.ErrURLParse, "requestUrl %q must include scheme and host", raw)
	}
	return u, nil
}

// HMACParams HMAC 方案的输入
type HMACParams struct {
	APIKey     string
	APISecret  string
	RequestURL string
	Date       string
}

// HMACHeaders 计算 authorization、host、date 三个请求头。Date 为空时由调用方负责填充。
func HMACHeaders(p HMACParams) (map[string]string, error) {
	u, err := ParseRequestURL(p.RequestURL)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()
	signature := SignHMAC(p.APISecret, SigningString(host, p.Date, u.EscapedPath()))
	return map[string]string{
		HeaderAuthorization: Authorization(p.APIKey, signature),
		HeaderHost:          host,
		HeaderDate:          p.Date,
	}, nil
}

// HMACHeaders 以当前时间计算 HMAC 请求头
func (s Source) HMACHeaders(apiKey, apiSecret, requestURL string) (map[string]string, error) {
	return HMACHeaders(HMACParams{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		RequestURL: requestURL,
		Date:       FormatDate(s.now()),
	})
}
