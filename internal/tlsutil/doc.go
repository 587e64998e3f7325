// Package tlsutil 提供集中式 TLS 配置，
// 为上游模型调用提供安全加固的 HTTP 传输层（TLS 1.2+，仅 AEAD 密码套件，30s 连接 / 120s 读取）。
package tlsutil
