// Package tlsutil 为 API 请求与资源下载构建统一的 http.Client，
// TLS 1.2+、仅 AEAD 密码套件，并针对单一 API 主机的重复轮询调整连接池。
package tlsutil
