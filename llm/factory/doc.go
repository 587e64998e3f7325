// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

// Package factory 集中组装策略注册表与调用器：
// 以显式的 (provider, kind, implementation) 列表构建 Registry，
// 并将 HTTP、SSE、WebSocket 三种调用器接到 Selector 与 Gateway 上。
package factory
