// =============================================================================
// 📦 默认配置
// =============================================================================
package config

import "time"

// Service endpoints used when nothing else is configured.
const (
	DefaultAPIURL              = "https://api.anything.world"
	DefaultPollingURL          = "https://api.anything.world/user-processed-model"
	DefaultGeneratedPollingURL = "https://api.anything.world/user-generated-model"
	DefaultPlatform            = "go"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Mode:      ModeProduction,
		API:       DefaultAPIConfig(),
		Polling:   DefaultPollingConfig(),
		HTTP:      DefaultHTTPConfig(),
		Store:     DefaultStoreConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultAPIConfig 返回默认 API 配置；Key 必须由调用方提供
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		URL:      DefaultAPIURL,
		Platform: DefaultPlatform,
	}
}

// DefaultPollingConfig 返回默认轮询配置：5s 间隔、无预热、不限次数
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		URL:          DefaultPollingURL,
		GeneratedURL: DefaultGeneratedPollingURL,
		Interval:     5 * time.Second,
		MissingStage: "not_ready",
	}
}

// DefaultHTTPConfig 返回默认传输层配置
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:          2 * time.Minute,
		Burst:            1,
		UserAgent:        "anythingworld-go",
		DownloadAttempts: 3,
		DownloadDelay:    time.Second,
	}
}

// DefaultStoreConfig 返回默认存储配置（不记录）
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Backend:   "none",
		KeyPrefix: "aw:job:",
		TTL:       7 * 24 * time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		Name:            "anythingworld.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "anythingworld",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "anythingworld-client",
		SampleRate:   0.1,
	}
}
