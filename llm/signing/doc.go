// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package signing 实现上游模型平台使用的两种请求签名方案。

# 校验和方案（DeepSeek 系列）

	appName      = strings.Split(endpoint, "/")[3]，右补 '0' 至 24 位
	csid         = appid + appName + UUIDv4
	X-Server-Param = base64({"appid":…,"csid":…})
	X-CurTime    = Unix 秒
	X-CheckSum   = md5hex(appKey + X-CurTime + X-Server-Param)

# HMAC 方案（中海油平台）

	signing string = "host: {host}\ndate: {date}\nPOST {path} HTTP/1.1"
	signature      = base64(HMAC-SHA256(apiSecret, signing string))
	authorization  = hmac api_key="…", algorithm="hmac-sha256", headers="host date request-line", signature="…"

时钟与 UUID 通过 [Source] 注入，便于测试得到确定结果。
*/
package signing
