// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

// Package retry 为调用方提供指数退避重试。调用核心本身从不重试，
// 是否重试由 types.Error 的 Retryable 标记决定。
package retry
