// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 invoker 执行三种调用方式的协议，并提供统一的调用入口。

# 调用方式

  - HTTPInvoker：POST JSON，读取完整响应体后由 ResponseParser.ParseSync 解析。
    非 2xx 状态返回携带状态码与响应体的 NETWORK 错误。
  - SSEInvoker：流式 POST，逐行交给 ParseStreamLine，无内容的行被过滤。
    返回 iter.Seq2[string, error]，首次遍历才发出请求，只能遍历一次；
    提前 break 会立即释放连接。
  - SocketInvoker：每次调用独占一条 WebSocket 连接。认证类请求头
    (api-key、apikey、token、authorization) 转为查询参数，其余请求头不发送。
    完成、对端关闭、读取错误、超时中先到者决定结果。

# 入口

Selector 按模型配置的 transport 选取 Invoker，Gateway 在其上补充
provider 与 modelKey 标注、RequestID、OpenTelemetry Span 以及 Prometheus 指标。
本包不做重试，错误的 Retryable 字段仅供调用方参考。
*/
package invoker
