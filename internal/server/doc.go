// Copyright (c) ModelGate Authors.
// Licensed under the MIT License.

/*
包 server 管理后台运行的辅助 HTTP 服务。

Manager 负责监听、非阻塞启动与带超时的优雅关闭。modelgate 命令行在
指定 -metrics-addr 时用它暴露 Prometheus /metrics。
*/
package server
