// Package config 提供 Anything World 客户端的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序叠加，环境变量名由
// env 标签拼接而成，例如 AW_API_KEY、AW_POLLING_INTERVAL、AW_MODE。
package config
