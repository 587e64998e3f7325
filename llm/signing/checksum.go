package signing

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/BaSui01/modelgate/types"
)

// appNameWidth 是 appName 右补 '0' 后的长度
const appNameWidth = 24

// 校验和方案的请求头
const (
	HeaderAppKey      = "appKey"
	HeaderServerParam = "X-Server-Param"
	HeaderCurTime     = "X-CurTime"
	HeaderCheckSum    = "X-CheckSum"
	HeaderContentType = "content-type"
)

// AppName 取 endpoint 按 "/" 切分后的第 4 段，右补 '0' 至 24 位。
// "https://host/a/b" 切分为 ["https:", "", "host", "a", "b"]，结果为 "a" 加 23 个 '0'。
func AppName(endpoint string) (string, error) {
	parts := strings.Split(endpoint, "/")
	if len(parts) < 4 {
		return "", types.Errorf(types.ErrURLParse, "endpoint %q has no application segment", endpoint)
	}
	name := parts[3]
	if n := len(name); n < appNameWidth {
		name += strings.Repeat("0", appNameWidth-n)
	}
	return name, nil
}

// serverParam 的 JSON 字段顺序固定为 appid, csid
type serverParam struct {
	AppID string `json:"appid"`
	CSID  string `json:"csid"`
}

// ServerParam 返回 base64(紧凑 JSON {"appid":…,"csid":…})，不做 HTML 转义。
func ServerParam(appID, csid string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(serverParam{AppID: appID, CSID: csid}); err != nil {
		return "", types.NewError(types.ErrSigning, "failed to encode server param").WithCause(err)
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// MD5Hex 返回 32 位小写十六进制 MD5
func MD5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ChecksumParams 校验和计算的全部输入
type ChecksumParams struct {
	AppKey   string
	AppID    string
	Endpoint string
	CurTime  string
	UUID     string
}

// ChecksumResult 校验和方案的计算结果
type ChecksumResult struct {
	AppKey      string
	ServerParam string
	CurTime     string
	CheckSum    string
}

// Headers 返回请求头映射
func (r ChecksumResult) Headers() map[string]string {
	return map[string]string{
		HeaderAppKey:      r.AppKey,
		HeaderServerParam: r.ServerParam,
		HeaderCurTime:     r.CurTime,
		HeaderCheckSum:    r.CheckSum,
		HeaderContentType: "application/json",
	}
}

// Checksum 根据确定的输入计算签名。相同输入总是得到相同结果。
func Checksum(p ChecksumParams) (ChecksumResult, error) {
	appName, err := AppName(p.Endpoint)
	if err != nil {
		return ChecksumResult{}, err
	}
	csid := p.AppID + appName + p.UUID
	sp, err := ServerParam(p.AppID, csid)
	if err != nil {
		return ChecksumResult{}, err
	}
	return ChecksumResult{
		AppKey:      p.AppKey,
		ServerParam: sp,
		CurTime:     p.CurTime,
		CheckSum:    MD5Hex(p.AppKey + p.CurTime + sp),
	}, nil
}

// ChecksumHeaders 以当前时间与新 UUID 计算校验和请求头。
func (s Source) ChecksumHeaders(appKey, appID, endpoint string) (map[string]string, error) {
	// 先校验 endpoint，避免无谓地消耗随机源
	if _, err := AppName(endpoint); err != nil {
		return nil, err
	}
	id, err := s.uuid()
	if err != nil {
		return nil, err
	}
	res, err := Checksum(ChecksumParams{
		AppKey:   appKey,
		AppID:    appID,
		Endpoint: endpoint,
		CurTime:  strconv.FormatInt(s.now().Unix(), 10),
		UUID:     id,
	})
	if err != nil {
		return nil, err
	}
	return res.Headers(), nil
}
