// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
Package strategy 定义按提供商区分的请求构造与响应解析策略，以及策略注册表。

# 策略

  - HeaderBuilder：构造请求头与签名
  - BodyBuilder：构造保持字段顺序的 JSON 请求体 [Body]
  - ResponseParser：解析同步响应、SSE 行与 WebSocket 消息，并判断完成

# 注册表

提供商名精确匹配、区分大小写，"中海油" 与 "中海油-DS" 是两个提供商。
每个 (provider, kind) 至多一个实现，重复注册在启动时即失败：

	reg, err := strategy.NewRegistry(
	    strategy.Registration{Provider: "DeepSeek", Kind: strategy.KindHeaderBuilder, Impl: hb},
	    ...
	)

Registry 构建后只读，可被并发查询。
*/
package strategy
