// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 把轮询、提交等操作产生的 span 通过 OTLP/gRPC 导出。
// 未启用时全局 provider 保持 noop，不连接任何外部服务。
package telemetry
