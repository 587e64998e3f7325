// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化，
// 通过 OTLP gRPC 导出调用 Span 与指标。
// 遥测关闭时使用 noop 实现，不连接任何外部服务。
package telemetry
